package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Ошибки чтения лога
	LogInfo             Code = 1000
	LogMalformedLine    Code = 1001 // line is not "[tag] fields..."
	LogUnknownTag       Code = 1002 // tag not recognised
	LogBadTermID        Code = 1003 // malformed #id
	LogBadKey           Code = 1004 // malformed 0x fingerprint
	LogMissingField     Code = 1005 // required field absent
	LogBadNumber        Code = 1006
	LogUnknownInstance  Code = 1007 // [instance] for a fingerprint never matched
	LogOrphanEnode      Code = 1008 // [attach-enode] outside an instance
	LogNestedInstance   Code = 1009 // [instance] before [end-of-instance]
	LogUnclosedInstance Code = 1010 // log ended inside an instance
	LogUnknownTerm      Code = 1011 // reference to a term that was never declared
	LogVersion          Code = 1012 // unsupported solver version

	// Анализ
	AnaInfo          Code = 2000
	AnaBlameConflict Code = 2001 // two instantiations claim the same produced term
	AnaEqualitySkip  Code = 2002 // equality matched-terms excluded from blame
	AnaCycle         Code = 2003 // causal graph contains a cycle
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	LogInfo:             "Log information",
	LogMalformedLine:    "Malformed log line",
	LogUnknownTag:       "Unknown log tag",
	LogBadTermID:        "Malformed term identifier",
	LogBadKey:           "Malformed instantiation key",
	LogMissingField:     "Missing field",
	LogBadNumber:        "Malformed number",
	LogUnknownInstance:  "Instance of unknown match",
	LogOrphanEnode:      "E-node attached outside an instance",
	LogNestedInstance:   "Nested instance",
	LogUnclosedInstance: "Unclosed instance",
	LogUnknownTerm:      "Unknown term",
	LogVersion:          "Unsupported solver version",
	AnaInfo:             "Analysis information",
	AnaBlameConflict:    "Conflicting blame",
	AnaEqualitySkip:     "Equality not attributed",
	AnaCycle:            "Causal cycle",
}

func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ANA%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
