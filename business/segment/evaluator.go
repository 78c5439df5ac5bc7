package segment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"myGreenInsight/domain"
)

// Evaluate reports whether a snapshot satisfies the criteria. Rules are
// joined by AND unless the logic is OR; OR stops at the first match. A rule
// whose field is absent from the snapshot never matches, whatever its
// operator.
func Evaluate(criteria domain.SegmentCriteria, snapshot domain.CustomerSnapshot) bool {
	if len(criteria.Rules) == 0 {
		return false
	}

	if criteria.Logic == domain.LogicOr {
		for _, r := range criteria.Rules {
			if evalRule(r, snapshot) {
				return true
			}
		}
		return false
	}

	for _, r := range criteria.Rules {
		if !evalRule(r, snapshot) {
			return false
		}
	}
	return true
}

func evalRule(r domain.SegmentRule, snapshot domain.CustomerSnapshot) bool {
	actual, ok := lookup(snapshot, r.Field)
	if !ok || actual == nil {
		return false
	}

	switch r.Operator {
	case domain.OpEq:
		return equal(actual, r.Value)
	case domain.OpNeq:
		return !equal(actual, r.Value)
	case domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		c, ok := compare(actual, r.Value)
		if !ok {
			return false
		}
		switch r.Operator {
		case domain.OpGt:
			return c > 0
		case domain.OpLt:
			return c < 0
		case domain.OpGte:
			return c >= 0
		default:
			return c <= 0
		}
	case domain.OpContains:
		return contains(actual, r.Value)
	case domain.OpNotContains:
		return !contains(actual, r.Value)
	case domain.OpIn:
		return inList(actual, r.Value)
	case domain.OpNotIn:
		list, ok := r.Value.([]any)
		return ok && !inList(actual, list)
	}
	return false
}

// lookup resolves a dotted path such as "metadata.plan" through nested maps.
func lookup(snapshot domain.CustomerSnapshot, field string) (any, bool) {
	if v, ok := snapshot[field]; ok {
		return v, true
	}
	parts := strings.Split(field, ".")
	var cur any = map[string]any(snapshot)
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case domain.CustomerSnapshot:
		return m, true
	}
	return nil, false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	if ba, ok := a.(bool); ok {
		bb, ok := toBool(b)
		return ok && ba == bb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	return strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b))
}

// compare orders numbers and times; anything else is not comparable.
func compare(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	fa, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

func contains(actual, needle any) bool {
	switch v := actual.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(fmt.Sprint(needle)))
	case []string:
		for _, s := range v {
			if equal(s, needle) {
				return true
			}
		}
	case []any:
		for _, s := range v {
			if equal(s, needle) {
				return true
			}
		}
	}
	return false
}

func inList(actual, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		if equal(actual, it) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		p, err := strconv.ParseBool(strings.TrimSpace(b))
		return p, err == nil
	}
	return false, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, domain.DateLayout} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
