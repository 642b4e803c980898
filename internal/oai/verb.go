package oai

// Verb is one of the six OAI-PMH operations.  The zero value is not a
// valid verb.
type Verb int

const (
	VerbIdentify Verb = iota + 1
	VerbListMetadataFormats
	VerbListSets
	VerbListIdentifiers
	VerbListRecords
	VerbGetRecord
)

var verbNames = map[Verb]string{
	VerbIdentify:            "Identify",
	VerbListMetadataFormats: "ListMetadataFormats",
	VerbListSets:            "ListSets",
	VerbListIdentifiers:     "ListIdentifiers",
	VerbListRecords:         "ListRecords",
	VerbGetRecord:           "GetRecord",
}

var verbsByName = func() map[string]Verb {
	m := make(map[string]Verb, len(verbNames))
	for v, n := range verbNames {
		m[n] = v
	}
	return m
}()

// ParseVerb maps the exact, case-sensitive protocol name onto a Verb.
func ParseVerb(s string) (Verb, bool) {
	v, ok := verbsByName[s]
	return v, ok
}

func (v Verb) String() string {
	if n, ok := verbNames[v]; ok {
		return n
	}
	return "invalid"
}

// Argument names as they appear on the wire.
const (
	ArgVerb            = "verb"
	ArgIdentifier      = "identifier"
	ArgMetadataPrefix  = "metadataPrefix"
	ArgFrom            = "from"
	ArgUntil           = "until"
	ArgSet             = "set"
	ArgResumptionToken = "resumptionToken"
)

// grammar returns the legal and required argument names for v.  Required
// names come in the order missing-argument errors are reported.
func (v Verb) grammar(resuming bool) (legal, required []string) {
	switch v {
	case VerbIdentify:
		return []string{ArgVerb}, []string{ArgVerb}
	case VerbListSets:
		return []string{ArgVerb, ArgResumptionToken}, []string{ArgVerb}
	case VerbListMetadataFormats:
		return []string{ArgVerb, ArgIdentifier}, []string{ArgVerb}
	case VerbListIdentifiers, VerbListRecords:
		if resuming {
			return []string{ArgVerb, ArgResumptionToken}, []string{ArgVerb}
		}
		return []string{ArgVerb, ArgMetadataPrefix, ArgFrom, ArgUntil, ArgSet},
			[]string{ArgVerb, ArgMetadataPrefix}
	case VerbGetRecord:
		return []string{ArgVerb, ArgIdentifier, ArgMetadataPrefix},
			[]string{ArgVerb, ArgIdentifier, ArgMetadataPrefix}
	}
	return nil, nil
}
