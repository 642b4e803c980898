package oai

import (
	"bytes"
	"encoding/xml"
	"io"
)

// Namespaces and schema locations of the response envelope.
const (
	NamespaceOAI       = "http://www.openarchives.org/OAI/2.0/"
	NamespaceXSI       = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocationOAI  = NamespaceOAI + " http://www.openarchives.org/OAI/2.0/OAI-PMH.xsd"
	namespaceOAIID     = "http://www.openarchives.org/OAI/2.0/oai-identifier"
	schemaLocationOAID = namespaceOAIID + " http://www.openarchives.org/OAI/2.0/oai-identifier.xsd"
	namespaceOAIDC     = "http://www.openarchives.org/OAI/2.0/oai_dc/"
	namespaceDC        = "http://purl.org/dc/elements/1.1/"
)

// Response is the OAI-PMH envelope.  Exactly one of Errors and Payload is
// set.
type Response struct {
	XMLName        xml.Name    `xml:"http://www.openarchives.org/OAI/2.0/ OAI-PMH"`
	XSI            string      `xml:"xmlns:xsi,attr"`
	SchemaLocation string      `xml:"xsi:schemaLocation,attr"`
	ResponseDate   string      `xml:"responseDate"`
	Request        RequestEcho `xml:"request"`
	Errors         []Error     `xml:"error"`
	Payload        any
}

// RequestEcho repeats the base URL and, for requests without badVerb or
// badArgument errors, the arguments.
type RequestEcho struct {
	BaseURL         string `xml:",chardata"`
	Verb            string `xml:"verb,attr,omitempty"`
	Identifier      string `xml:"identifier,attr,omitempty"`
	MetadataPrefix  string `xml:"metadataPrefix,attr,omitempty"`
	From            string `xml:"from,attr,omitempty"`
	Until           string `xml:"until,attr,omitempty"`
	Set             string `xml:"set,attr,omitempty"`
	ResumptionToken string `xml:"resumptionToken,attr,omitempty"`
}

// WriteTo renders the XML declaration and the envelope.  The document is
// built in memory first so a marshalling failure never leaves a partial
// body behind.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(r); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

/*──────────────────────────── Identify ─────────────────────────────────────*/

type Identify struct {
	XMLName           xml.Name      `xml:"Identify"`
	RepositoryName    string        `xml:"repositoryName"`
	BaseURL           string        `xml:"baseURL"`
	ProtocolVersion   string        `xml:"protocolVersion"`
	AdminEmail        []string      `xml:"adminEmail"`
	EarliestDatestamp string        `xml:"earliestDatestamp"`
	DeletedRecord     string        `xml:"deletedRecord"`
	Granularity       string        `xml:"granularity"`
	Descriptions      []Description `xml:"description"`
}

type Description struct {
	Identifier *OAIIdentifier
}

// OAIIdentifier describes the identifier scheme (oai-identifier.xsd).
type OAIIdentifier struct {
	XMLName              xml.Name `xml:"http://www.openarchives.org/OAI/2.0/oai-identifier oai-identifier"`
	XSI                  string   `xml:"xmlns:xsi,attr"`
	SchemaLocation       string   `xml:"xsi:schemaLocation,attr"`
	Scheme               string   `xml:"scheme"`
	RepositoryIdentifier string   `xml:"repositoryIdentifier"`
	Delimiter            string   `xml:"delimiter"`
	SampleIdentifier     string   `xml:"sampleIdentifier"`
}

/*──────────────────────────── ListSets ─────────────────────────────────────*/

type ListSets struct {
	XMLName xml.Name  `xml:"ListSets"`
	Sets    []SetInfo `xml:"set"`
}

type SetInfo struct {
	Spec        string          `xml:"setSpec"`
	Name        string          `xml:"setName"`
	Description *SetDescription `xml:"setDescription,omitempty"`
}

// SetDescription wraps the free-text description in an oai_dc container.
type SetDescription struct {
	DC struct {
		XMLName     xml.Name `xml:"http://www.openarchives.org/OAI/2.0/oai_dc/ dc"`
		Description string   `xml:"http://purl.org/dc/elements/1.1/ description"`
	}
}

func newSetDescription(text string) *SetDescription {
	if text == "" {
		return nil
	}
	d := &SetDescription{}
	d.DC.Description = text
	return d
}

/*──────────────────────────── ListMetadataFormats ──────────────────────────*/

type ListMetadataFormats struct {
	XMLName xml.Name     `xml:"ListMetadataFormats"`
	Formats []FormatInfo `xml:"metadataFormat"`
}

type FormatInfo struct {
	Prefix    string `xml:"metadataPrefix"`
	Schema    string `xml:"schema"`
	Namespace string `xml:"metadataNamespace"`
}

/*──────────────────────────── records ──────────────────────────────────────*/

// Header is a record header.  Status is "deleted" for tombstones.
type Header struct {
	Status     string   `xml:"status,attr,omitempty"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpecs   []string `xml:"setSpec"`
}

// Deleted reports whether the header marks a tombstone.
func (h Header) Deleted() bool { return h.Status == statusDeleted }

const statusDeleted = "deleted"

// Metadata carries already-serialised record XML.
type Metadata struct {
	Inner []byte `xml:",innerxml"`
}

type Record struct {
	Header   Header    `xml:"header"`
	Metadata *Metadata `xml:"metadata,omitempty"`
}

// ResumptionToken is the flow-control element.  An empty Value with
// CompleteListSize and Cursor set marks the last page of a list.
type ResumptionToken struct {
	Value            string `xml:",chardata"`
	ExpirationDate   string `xml:"expirationDate,attr,omitempty"`
	CompleteListSize int    `xml:"completeListSize,attr"`
	Cursor           int    `xml:"cursor,attr"`
}

type ListIdentifiers struct {
	XMLName xml.Name         `xml:"ListIdentifiers"`
	Headers []Header         `xml:"header"`
	Token   *ResumptionToken `xml:"resumptionToken,omitempty"`
}

type ListRecords struct {
	XMLName xml.Name         `xml:"ListRecords"`
	Records []Record         `xml:"record"`
	Token   *ResumptionToken `xml:"resumptionToken,omitempty"`
}

type GetRecord struct {
	XMLName xml.Name `xml:"GetRecord"`
	Record  Record   `xml:"record"`
}
