package oai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanizio/oairepo/internal/model"
)

const (
	protocolVersion = "2.0"
	deletedRecord   = "persistent"
	sampleLocalID   = "0123456789abcdef"
)

// epoch is the earliest datestamp of an empty repository.
var epoch = time.Unix(0, 0).UTC()

// identify fails when no admin email is configured; OAI-PMH.xsd requires
// at least one adminEmail.
func (e *Engine) identify(ctx context.Context, st model.Settings) (*Identify, error) {
	if st.AdminEmail == "" {
		return nil, errors.New("identify: repository settings have no admin email")
	}
	earliest, ok, err := e.deps.Index.Earliest(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify: earliest datestamp: %w", err)
	}
	if !ok {
		earliest = epoch
	}

	out := &Identify{
		RepositoryName:    st.Name,
		BaseURL:           e.opt.BaseURL,
		ProtocolVersion:   protocolVersion,
		AdminEmail:        []string{st.AdminEmail},
		EarliestDatestamp: FormatDate(earliest),
		DeletedRecord:     deletedRecord,
		Granularity:       Granularity,
		Descriptions: []Description{{Identifier: &OAIIdentifier{
			XSI:                  NamespaceXSI,
			SchemaLocation:       schemaLocationOAID,
			Scheme:               identifierScheme,
			RepositoryIdentifier: st.Identifier,
			Delimiter:            ":",
			SampleIdentifier:     FormatIdentifier(st.Identifier, sampleLocalID),
		}}},
	}
	return out, nil
}
