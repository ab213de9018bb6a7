package bounce

import (
	"fmt"
	"regexp"
)

var (
	ruleIDRe = regexp.MustCompile(`^[0-9]{4}$`)
	ruleByID = map[string]*Rule{}
)

func init() {
	for _, list := range [][]Rule{dsnRules, bodyRules} {
		for i := range list {
			r := &list[i]
			if err := checkRule(r); err != nil {
				panic(err)
			}
			ruleByID[r.ID] = r
		}
	}
}

func checkRule(r *Rule) error {
	switch {
	case !ruleIDRe.MatchString(r.ID) || r.ID == UnrecognizedRuleID:
		return fmt.Errorf("bounce: invalid rule id %q", r.ID)
	case ruleByID[r.ID] != nil:
		return fmt.Errorf("bounce: duplicate rule id %s", r.ID)
	case r.Category == CategoryUnrecognized || !r.Category.Known():
		return fmt.Errorf("bounce: rule %s has invalid category %q", r.ID, r.Category)
	case r.when == nil || r.extract == nil:
		return fmt.Errorf("bounce: rule %s is incomplete", r.ID)
	}
	return nil
}

// Rules returns both catalogs, DSN rules first.
func Rules() []Rule {
	all := make([]Rule, 0, len(dsnRules)+len(bodyRules))
	all = append(all, dsnRules...)
	return append(all, bodyRules...)
}

// DSNRules returns the DSN catalog in evaluation order.
func DSNRules() []Rule { return append([]Rule(nil), dsnRules...) }

// BodyRules returns the body catalog in evaluation order.
func BodyRules() []Rule { return append([]Rule(nil), bodyRules...) }

// LookupRule finds a rule of either catalog by id.
func LookupRule(id string) (Rule, bool) {
	r, ok := ruleByID[id]
	if !ok {
		return Rule{}, false
	}
	return *r, true
}
