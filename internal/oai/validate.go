package oai

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Args is a request that passed grammar validation.  Only arguments legal
// for Verb are set.
type Args struct {
	Verb            Verb
	Identifier      string
	MetadataPrefix  string
	From            string
	Until           string
	Set             string
	ResumptionToken string

	resuming bool
}

// Resuming reports whether the request continues an earlier listing.  A
// blank resumptionToken still counts; it then fails the token lookup.
func (a Args) Resuming() bool { return a.resuming }

// Validate checks q against the verb's argument grammar.  A missing or
// unknown verb yields exactly one badVerb error.  Otherwise every
// duplicated, illegal, or missing argument is reported, all together, as
// badArgument errors in that order.
func Validate(q url.Values) (Args, error) {
	var a Args

	verb := q.Get(ArgVerb)
	if verb == "" {
		return a, Errors{newError(CodeBadVerb, "no verb supplied")}
	}
	v, ok := ParseVerb(verb)
	if !ok {
		return a, Errors{newError(CodeBadVerb, "illegal verb %q", verb)}
	}
	a.Verb = v

	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs Errors
	for _, name := range names {
		if len(q[name]) > 1 {
			errs = append(errs, newError(CodeBadArgument, "multiple occurrences of %s", name))
		}
	}

	legal, required := v.grammar(q.Has(ArgResumptionToken))
	for _, name := range names {
		if !contains(legal, name) {
			errs = append(errs, newError(CodeBadArgument, "illegal argument %s for verb %s", name, v))
		}
	}
	for _, name := range required {
		if q.Get(name) == "" {
			errs = append(errs, newError(CodeBadArgument, "missing required argument %s", name))
		}
	}
	if len(errs) > 0 {
		return a, errs
	}

	a.Identifier = q.Get(ArgIdentifier)
	a.MetadataPrefix = q.Get(ArgMetadataPrefix)
	a.From = q.Get(ArgFrom)
	a.Until = q.Get(ArgUntil)
	a.Set = q.Get(ArgSet)
	a.ResumptionToken = q.Get(ArgResumptionToken)
	a.resuming = q.Has(ArgResumptionToken)
	return a, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

/*──────────────────────────── field syntax ─────────────────────────────────*/

// DateLayout is the only datestamp granularity this repository supports.
const DateLayout = "2006-01-02T15:04:05Z"

// Granularity is DateLayout as advertised in Identify.
const Granularity = "YYYY-MM-DDThh:mm:ssZ"

// ParseDate parses a from/until argument.  An empty value means no bound.
func ParseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, newError(CodeBadArgument, "bad %s argument %q: expected %s", field, value, Granularity)
	}
	t = t.UTC()
	return &t, nil
}

// FormatDate renders a datestamp.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// identifierScheme is the fixed scheme of every record identifier.
const identifierScheme = "oai"

// FormatIdentifier builds oai:{repositoryID}:id/{localID}.
func FormatIdentifier(repositoryID, localID string) string {
	return identifierScheme + ":" + repositoryID + ":id/" + localID
}

// ParseIdentifier extracts the local id from an identifier of the exact
// form oai:{repositoryID}:id/{localID}.  Anything else is idDoesNotExist.
func ParseIdentifier(repositoryID, identifier string) (string, error) {
	prefix := FormatIdentifier(repositoryID, "")
	local, ok := strings.CutPrefix(identifier, prefix)
	if !ok || local == "" {
		return "", errIDDoesNotExist(identifier)
	}
	return local, nil
}
