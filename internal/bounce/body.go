package bounce

import "fmt"

// ClassifyBody classifies a bounce without a delivery-status part. text is
// the decoded body; header may be nil. A message/* body is only inspected up
// to MessageScanLimit bytes. Matching is case-insensitive.
func ClassifyBody(text string, ct ContentType, header HeaderGetter) (Result, error) {
	if !ct.valid() {
		return Unrecognized(), fmt.Errorf("%w: %v", ErrUnsupportedContentType, ct)
	}
	if ct == ContentTypeMessage && len(text) > MessageScanLimit {
		text = text[:MessageScanLimit]
	}
	in := &input{text: text, header: header}
	for i := range bodyRules {
		r := &bodyRules[i]
		m, ok := r.when(in)
		if !ok {
			continue
		}
		return r.result(r.extract(in, m)), nil
	}
	return Unrecognized(), nil
}
