// internal/oai/engine.go
//
// OAI-PMH 2.0 protocol engine.
//
// Context
// -------
// Engine turns one request's arguments into one response envelope.  It is
// request-scoped and keeps no state between calls; the document index and
// the resumption pages live in the stores behind Deps.
//
// Workflow
// --------
//  1. Settings are read; a repository with harvesting switched off answers
//     ErrHarvestingDisabled before anything else happens.
//  2. Validate checks the verb grammar.  Grammar errors become the whole
//     response.
//  3. The verb is dispatched with a total switch over Verb.
//  4. Protocol errors raised by a handler become <error> elements (HTTP
//     200).  Anything else is operational and returned to the caller.
//
// Notes
// -----
//   - The engine performs no locking; per-row atomicity comes from the
//     database.  The only retry is resumption-token minting.
package oai

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/oairepo/internal/metrics"
	"github.com/yanizio/oairepo/internal/model"
)

/*──────────────────────────── collaborators ────────────────────────────────*/

// Settings yields the repository identity.  *settings.Provider satisfies it.
type Settings interface {
	Settings(ctx context.Context) (model.Settings, error)
}

// Formats is the metadata format registry.
type Formats interface {
	ByPrefix(ctx context.Context, prefix string) (model.MetadataFormat, error)
	All(ctx context.Context) ([]model.MetadataFormat, error)
	DerivedForTemplate(ctx context.Context, templateID int64) (model.MetadataFormat, error)
}

// Sets is the set registry.
type Sets interface {
	All(ctx context.Context) ([]model.Set, error)
	BySpec(ctx context.Context, spec string) (model.Set, error)
	SpecsForTemplates(ctx context.Context, templateIDs []int64) (map[int64][]string, error)
}

// Templates resolves template versions.
type Templates interface {
	Get(ctx context.Context, id int64) (model.Template, error)
	IDsInGroups(ctx context.Context, groups []int64) ([]int64, error)
}

// Mappings is the (template, format) → stylesheet table.
type Mappings interface {
	Find(ctx context.Context, templateID, formatID int64) (model.FormatMapping, error)
	TemplatesForFormat(ctx context.Context, formatID int64) ([]int64, error)
	FormatsForTemplate(ctx context.Context, templateID int64) ([]model.MetadataFormat, error)
}

// Index is the harvest-facing document index.
type Index interface {
	ByDocument(ctx context.Context, documentID string) (model.IndexEntry, error)
	Find(ctx context.Context, q model.EntryQuery) (model.EntryPage, error)
	Earliest(ctx context.Context) (time.Time, bool, error)
}

// Tokens persists resumption pages.  Insert reports a token collision as
// model.ErrDuplicate.
type Tokens interface {
	Insert(ctx context.Context, p model.ResumptionPage) error
	Get(ctx context.Context, token string) (model.ResumptionPage, error)
}

// Documents reads record content.
type Documents interface {
	Get(ctx context.Context, id string) (model.Document, error)
}

// Transformer applies an XSLT stylesheet.  *xslt.Processor satisfies it.
type Transformer interface {
	Transform(ctx context.Context, xml []byte, stylesheetID int64) ([]byte, error)
}

// Deps bundles the engine's collaborators.  All are required.
type Deps struct {
	Settings    Settings
	Formats     Formats
	Sets        Sets
	Templates   Templates
	Mappings    Mappings
	Index       Index
	Tokens      Tokens
	Documents   Documents
	Transformer Transformer
}

// Options are the engine's tunables.
type Options struct {
	BaseURL       string        // advertised in Identify and the request echo
	SchemaBaseURI string        // prefix of synthesised template schema URLs
	PageSize      int           // records per listing page
	TokenTTL      time.Duration // resumption page lifetime
	Workers       int           // concurrent disseminations per ListRecords page

	Now  func() time.Time // defaults to time.Now
	Rand io.Reader        // token entropy, defaults to crypto/rand
	Log  *zap.SugaredLogger
}

/*──────────────────────────── engine ───────────────────────────────────────*/

// Engine answers OAI-PMH requests.  It is safe for concurrent use.
type Engine struct {
	deps Deps
	opt  Options
	log  *zap.SugaredLogger
}

// New validates deps and fills option defaults.
func New(deps Deps, opt Options) (*Engine, error) {
	switch {
	case deps.Settings == nil, deps.Formats == nil, deps.Sets == nil,
		deps.Templates == nil, deps.Mappings == nil, deps.Index == nil,
		deps.Tokens == nil, deps.Documents == nil, deps.Transformer == nil:
		return nil, fmt.Errorf("oai: incomplete dependencies")
	case opt.PageSize < 1:
		return nil, fmt.Errorf("oai: page size must be positive, got %d", opt.PageSize)
	case opt.TokenTTL <= 0:
		return nil, fmt.Errorf("oai: token TTL must be positive, got %s", opt.TokenTTL)
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Rand == nil {
		opt.Rand = rand.Reader
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop().Sugar()
	}
	return &Engine{deps: deps, opt: opt, log: opt.Log}, nil
}

func (e *Engine) now() time.Time { return e.opt.Now().UTC() }

// Handle answers one request.  Protocol errors are part of the returned
// Response; a non-nil error is either ErrHarvestingDisabled or an
// operational failure.
func (e *Engine) Handle(ctx context.Context, q url.Values) (*Response, error) {
	start := time.Now()

	st, err := e.deps.Settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("oai: settings: %w", err)
	}
	if !st.HarvestingEnabled {
		return nil, ErrHarvestingDisabled
	}

	resp := &Response{
		XSI:            NamespaceXSI,
		SchemaLocation: schemaLocationOAI,
		ResponseDate:   FormatDate(e.now()),
		Request:        RequestEcho{BaseURL: e.opt.BaseURL},
	}

	args, err := Validate(q)
	if err != nil {
		errs, _ := protocolErrors(err)
		e.fail(resp, errs)
		metrics.Requests.WithLabelValues("invalid").Inc()
		metrics.RequestDuration.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
		return resp, nil
	}
	resp.Request = echo(e.opt.BaseURL, args)

	var payload any
	switch args.Verb {
	case VerbIdentify:
		payload, err = e.identify(ctx, st)
	case VerbListMetadataFormats:
		payload, err = e.listMetadataFormats(ctx, st, args)
	case VerbListSets:
		payload, err = e.listSets(ctx, args)
	case VerbListIdentifiers:
		payload, err = e.listIdentifiers(ctx, st, args)
	case VerbListRecords:
		payload, err = e.listRecords(ctx, st, args)
	case VerbGetRecord:
		payload, err = e.getRecord(ctx, st, args)
	default:
		err = fmt.Errorf("oai: unhandled verb %d", args.Verb)
	}

	verb := args.Verb.String()
	metrics.Requests.WithLabelValues(verb).Inc()
	defer func() {
		metrics.RequestDuration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		errs, ok := protocolErrors(err)
		if !ok {
			e.log.Errorw("oai request failed", "verb", verb, "err", err)
			return nil, err
		}
		e.fail(resp, errs)
		return resp, nil
	}
	resp.Payload = payload
	return resp, nil
}

// fail turns resp into an error response.  Grammar errors suppress the
// argument echo.
func (e *Engine) fail(resp *Response, errs Errors) {
	resp.Errors = errs
	for _, er := range errs {
		metrics.ProtocolErrors.WithLabelValues(string(er.Code)).Inc()
		if er.Code == CodeBadVerb || er.Code == CodeBadArgument {
			resp.Request = RequestEcho{BaseURL: e.opt.BaseURL}
		}
	}
	e.log.Debugw("oai protocol error", "errors", errs.Error())
}

func echo(baseURL string, a Args) RequestEcho {
	return RequestEcho{
		BaseURL:         baseURL,
		Verb:            a.Verb.String(),
		Identifier:      a.Identifier,
		MetadataPrefix:  a.MetadataPrefix,
		From:            a.From,
		Until:           a.Until,
		Set:             a.Set,
		ResumptionToken: a.ResumptionToken,
	}
}
