package securitylabel

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

var maskableTextFields = []string{"text", "display", "value", "family", "given"}

// MaskResource returns a masked copy of r tagged MASKED. When masking is
// disabled, the decision is ALLOW or nothing needs masking r is returned
// unchanged. A nil assessment is computed against the current user.
func (s *Service) MaskResource(ctx context.Context, r fhir.Resource, a *Assessment) fhir.Resource {
	if !s.cfg.EnableMasking || r == nil {
		return r
	}
	if a == nil {
		assessed := s.AssessSecurity(ctx, r)
		a = &assessed
	}
	if a.Decision == DecisionAllow || len(a.MaskedFields) == 0 {
		return r
	}

	masked := r.Clone()
	opts := defaultMasking[a.Confidentiality]
	for _, field := range a.MaskedFields {
		s.maskField(masked, field, opts)
	}

	meta := masked.Meta()
	meta.Tag = append(meta.Tag, fhir.Coding{
		System:  MaskedTagSystem,
		Code:    MaskedTagCode,
		Display: "Data has been masked",
	})
	masked.SetMeta(meta)
	return masked
}

// maskField masks a dotted path. Missing segments are ignored.
func (s *Service) maskField(r fhir.Resource, path string, opts MaskOptions) {
	parts := strings.Split(path, ".")
	current := map[string]interface{}(r)
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
	name := parts[len(parts)-1]
	value, ok := current[name]
	if !ok {
		return
	}
	if list, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = s.maskValue(item, opts)
		}
		current[name] = out
		return
	}
	current[name] = s.maskValue(value, opts)
}

func (s *Service) maskValue(v interface{}, opts MaskOptions) interface{} {
	switch val := v.(type) {
	case string:
		return s.MaskString(val, &opts)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, x := range val {
			out[k] = x
		}
		for _, f := range maskableTextFields {
			switch fv := out[f].(type) {
			case string:
				out[f] = s.MaskString(fv, &opts)
			case []interface{}:
				masked := make([]interface{}, len(fv))
				for i, item := range fv {
					if str, ok := item.(string); ok {
						masked[i] = s.MaskString(str, &opts)
					} else {
						masked[i] = item
					}
				}
				out[f] = masked
			}
		}
		return out
	}
	return v
}

// MaskString hides str. full replaces every character, partial keeps the
// first VisibleChars (default 2), redact substitutes MaskText and blur
// returns a "[BLUR:n]" marker. Nil options use the restricted-level style.
func (s *Service) MaskString(str string, opts *MaskOptions) string {
	if str == "" {
		return str
	}
	o := defaultMasking[fhir.LabelRestricted]
	if opts != nil {
		o = *opts
	}
	n := utf8.RuneCountInString(str)
	switch o.Style {
	case MaskPartial:
		visible := o.VisibleChars
		if visible <= 0 {
			visible = 2
		}
		if n <= visible {
			return strings.Repeat(s.cfg.MaskCharacter, n)
		}
		runes := []rune(str)
		return string(runes[:visible]) + strings.Repeat(s.cfg.MaskCharacter, n-visible)
	case MaskRedact:
		if o.MaskText != "" {
			return o.MaskText
		}
		return "[已遮蔽]"
	case MaskBlur:
		return fmt.Sprintf("[BLUR:%d]", n)
	default:
		return strings.Repeat(s.cfg.MaskCharacter, n)
	}
}
