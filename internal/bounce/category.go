package bounce

// Category names the cause of a bounce.
type Category string

const (
	CategoryAntispam      Category = "antispam"
	CategoryAutoreply     Category = "autoreply"
	CategoryConcurrent    Category = "concurrent"
	CategoryContentReject Category = "content_reject"
	CategoryCommandReject Category = "command_reject"
	CategoryInternalError Category = "internal_error"
	CategoryDefer         Category = "defer"
	CategoryDelayed       Category = "delayed"
	CategoryDNSLoop       Category = "dns_loop"
	CategoryDNSUnknown    Category = "dns_unknown"
	CategoryFull          Category = "full"
	CategoryInactive      Category = "inactive"
	CategoryLatinOnly     Category = "latin_only"
	CategoryOther         Category = "other"
	CategoryOversize      Category = "oversize"
	CategoryOutOfOffice   Category = "outofoffice"
	CategoryUnknown       Category = "unknown"
	CategoryUnrecognized  Category = "unrecognized"
	CategoryUserReject    Category = "user_reject"
	CategoryWarning       Category = "warning"
)

type categoryDefaults struct {
	severity Severity
	remove   bool
}

// Rules take these unless they say otherwise. Unrecognized has no entry: it
// is never the category of a rule.
var defaults = map[Category]categoryDefaults{
	CategoryAntispam:      {SeverityBlocked, true},
	CategoryAutoreply:     {SeveritySoft, false},
	CategoryConcurrent:    {SeveritySoft, true},
	CategoryContentReject: {SeveritySoft, true},
	CategoryCommandReject: {SeverityHard, true},
	CategoryInternalError: {SeverityTemporary, true},
	CategoryDefer:         {SeveritySoft, true},
	CategoryDelayed:       {SeverityTemporary, true},
	CategoryDNSLoop:       {SeverityHard, true},
	CategoryDNSUnknown:    {SeverityHard, true},
	CategoryFull:          {SeveritySoft, true},
	CategoryInactive:      {SeverityHard, true},
	CategoryLatinOnly:     {SeveritySoft, true},
	CategoryOther:         {SeveritySoft, true},
	CategoryOversize:      {SeveritySoft, true},
	CategoryOutOfOffice:   {SeveritySoft, false},
	CategoryUnknown:       {SeverityHard, true},
	CategoryUserReject:    {SeverityHard, true},
	CategoryWarning:       {SeveritySoft, false},
}

// Categories lists every category, the sentinel included.
func Categories() []Category {
	return []Category{
		CategoryAntispam, CategoryAutoreply, CategoryConcurrent, CategoryContentReject,
		CategoryCommandReject, CategoryInternalError, CategoryDefer, CategoryDelayed,
		CategoryDNSLoop, CategoryDNSUnknown, CategoryFull, CategoryInactive,
		CategoryLatinOnly, CategoryOther, CategoryOversize, CategoryOutOfOffice,
		CategoryUnknown, CategoryUnrecognized, CategoryUserReject, CategoryWarning,
	}
}

// Known reports whether c is part of the enumeration.
func (c Category) Known() bool {
	_, ok := defaults[c]
	return ok || c == CategoryUnrecognized
}
