package securitylabel

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/dom"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// =========== MaskString ===========

func TestMaskString(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name string
		in   string
		opts *MaskOptions
		want string
	}{
		{"full", "Chen", &MaskOptions{Style: MaskFull}, "●●●●"},
		{"partial", "Chen Wei", &MaskOptions{Style: MaskPartial, VisibleChars: 2}, "Ch●●●●●●"},
		{"partial default visible", "abcd", &MaskOptions{Style: MaskPartial}, "ab●●"},
		{"partial short", "ab", &MaskOptions{Style: MaskPartial, VisibleChars: 2}, "●●"},
		{"partial multibyte", "王小明", &MaskOptions{Style: MaskPartial, VisibleChars: 1}, "王●●"},
		{"redact", "anything", &MaskOptions{Style: MaskRedact, MaskText: "[hidden]"}, "[hidden]"},
		{"redact default", "anything", &MaskOptions{Style: MaskRedact}, "[已遮蔽]"},
		{"blur", "secret", &MaskOptions{Style: MaskBlur}, "[BLUR:6]"},
		{"nil options use partial", "Smith", nil, "Sm●●●"},
		{"empty", "", &MaskOptions{Style: MaskFull}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.MaskString(tt.in, tt.opts); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMaskString_CustomCharacter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaskCharacter = "*"
	svc := NewService(cfg, zerolog.Nop())
	if got := svc.MaskString("abc", &MaskOptions{Style: MaskFull}); got != "***" {
		t.Errorf("expected ***, got %q", got)
	}
}

// =========== MaskResource ===========

func restrictedPatient(code string) fhir.Resource {
	r := fhir.Resource{
		"resourceType": "Patient",
		"id":           "p1",
		"name": []interface{}{
			map[string]interface{}{"family": "Chen", "given": []interface{}{"Wei"}},
		},
		"identifier": []interface{}{
			map[string]interface{}{"system": "urn:mrn", "value": "A123456"},
		},
		"birthDate": "1980-01-01",
		"gender":    "female",
	}
	r.SetMeta(fhir.Meta{Security: []fhir.Coding{{System: fhir.SecurityLabelSystem, Code: code}}})
	return r
}

func TestMaskResource_Restricted(t *testing.T) {
	svc, _ := newTestService()
	in := restrictedPatient("R")
	out := svc.MaskResource(context.Background(), in, nil)

	name := out["name"].([]interface{})[0].(map[string]interface{})
	if name["family"] != "Ch●●" {
		t.Errorf("expected partially masked family, got %v", name["family"])
	}
	if given := name["given"].([]interface{}); given[0] != "We●" {
		t.Errorf("expected partially masked given, got %v", given[0])
	}
	ident := out["identifier"].([]interface{})[0].(map[string]interface{})
	if ident["value"] != "A1●●●●●" {
		t.Errorf("expected masked identifier, got %v", ident["value"])
	}
	if ident["system"] != "urn:mrn" {
		t.Errorf("expected system untouched, got %v", ident["system"])
	}
	if out["birthDate"] != "1980-01-01" {
		t.Error("expected birthDate visible at R")
	}
	tags := out.Tags()
	if len(tags) != 1 || tags[0].Code != MaskedTagCode {
		t.Errorf("expected MASKED tag, got %+v", tags)
	}

	orig := in["name"].([]interface{})[0].(map[string]interface{})
	if orig["family"] != "Chen" {
		t.Error("expected input resource untouched")
	}
}

func TestMaskResource_VeryRestricted(t *testing.T) {
	svc, _ := newTestService()
	out := svc.MaskResource(context.Background(), restrictedPatient("V"), nil)
	if out["birthDate"] != "[極機密資料]" {
		t.Errorf("expected redacted birthDate, got %v", out["birthDate"])
	}
}

func TestMaskResource_AllowUnchanged(t *testing.T) {
	svc, _ := newTestService()
	in := restrictedPatient("N")
	out := svc.MaskResource(context.Background(), in, nil)
	if len(out.Tags()) != 0 {
		t.Error("expected no MASKED tag on ALLOW")
	}

	cfg := DefaultConfig()
	cfg.EnableMasking = false
	off := NewService(cfg, zerolog.Nop())
	out = off.MaskResource(context.Background(), restrictedPatient("V"), nil)
	if out["birthDate"] != "1980-01-01" {
		t.Error("expected masking disabled to return the resource unchanged")
	}
}

// =========== UI ===========

func TestCreateSecurityBadge(t *testing.T) {
	doc := dom.MustParse(`<div id="root"></div>`)
	badge := CreateSecurityBadge(doc, Assessment{
		Confidentiality: "R",
		Sensitivities:   []string{"HIV", "GENERAL"},
		WarningMessage:  "careful",
	})
	if !badge.HasClass("security-r") {
		t.Errorf("expected security-r class, got %q", badge.ClassName())
	}
	if badge.Attr("title") != "careful" {
		t.Errorf("expected warning as title, got %q", badge.Attr("title"))
	}
	icons := badge.QuerySelectorAll(".sensitivity-icon")
	if len(icons) != 1 || !icons[0].HasClass("sensitivity-hiv") {
		t.Errorf("expected one HIV icon, got %d", len(icons))
	}
}

func TestShowWarning_Decision(t *testing.T) {
	svc, _ := newTestService()
	doc := dom.MustParse(`<div id="root"></div>`)
	a := Assessment{Confidentiality: "V", Sensitivities: []string{"PSY"}, WarningMessage: "<b>x</b>"}

	var decisions []bool
	svc.ShowWarning(doc, a, func(ok bool) { decisions = append(decisions, ok) })
	dialog := doc.QuerySelector(".security-warning-dialog")
	if dialog == nil {
		t.Fatal("expected dialog in body")
	}
	if msg := dialog.QuerySelector(".warning-message"); msg == nil || !strings.Contains(msg.Text(), "<b>x</b>") {
		t.Error("expected escaped warning message text")
	}
	doc.QuerySelector(".btn-confirm").Dispatch(dom.EventClick)
	if len(decisions) != 1 || !decisions[0] {
		t.Errorf("expected confirm, got %v", decisions)
	}
	if doc.QuerySelector(".security-warning-dialog") != nil {
		t.Error("expected dialog removed")
	}

	svc.ShowWarning(doc, a, func(ok bool) { decisions = append(decisions, ok) })
	doc.QuerySelector(".dialog-overlay").Dispatch(dom.EventClick)
	if len(decisions) != 2 || decisions[1] {
		t.Errorf("expected cancel via overlay, got %v", decisions)
	}
}

func TestInjectStyles_Idempotent(t *testing.T) {
	doc := dom.MustParse(`<div></div>`)
	InjectStyles(doc)
	InjectStyles(doc)
	if got := len(doc.QuerySelectorAll("#security-labels-styles")); got != 1 {
		t.Errorf("expected 1 style element, got %d", got)
	}
}
