package securitylabel

import (
	"html"
	"strings"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

const stylesID = "security-labels-styles"

// CreateSecurityBadge renders a confidentiality badge with one icon per
// sensitivity. The badge is not attached to the document.
func CreateSecurityBadge(doc *dom.Document, a Assessment) *dom.Element {
	d := confidentialityDisplay[a.Confidentiality]
	badge := doc.CreateElement("span")
	badge.SetClassName("security-badge security-" + strings.ToLower(a.Confidentiality))
	badge.SetText(d.ZH)
	title := a.WarningMessage
	if title == "" {
		title = d.EN
	}
	badge.SetAttr("title", title)

	var icons *dom.Element
	for _, cat := range a.Sensitivities {
		if cat == SensitivityGeneral {
			continue
		}
		if icons == nil {
			icons = doc.CreateElement("span")
			icons.SetClassName("sensitivity-icons")
		}
		icon := doc.CreateElement("span")
		icon.SetClassName("sensitivity-icon sensitivity-" + strings.ToLower(cat))
		icon.SetAttr("title", sensitivityDisplay[cat].ZH)
		icon.SetText(SensitivityIcon(cat))
		icons.AppendChild(icon)
	}
	if icons != nil {
		badge.AppendChild(icons)
	}
	return badge
}

// CreateWarningDialog renders the sensitive access dialog. Cancel and the
// overlay call onCancel, confirm calls onConfirm; each removes the dialog
// first.
func CreateWarningDialog(doc *dom.Document, a Assessment, onConfirm, onCancel func()) *dom.Element {
	d := confidentialityDisplay[a.Confidentiality]
	var sens strings.Builder
	for _, cat := range a.Sensitivities {
		if cat == SensitivityGeneral {
			continue
		}
		sens.WriteString("<li>" + html.EscapeString(sensitivityDisplay[cat].ZH) + "</li>")
	}
	sensBlock := ""
	if sens.Len() > 0 {
		sensBlock = `<div class="sensitivity-info"><span class="label">敏感類別：</span><ul>` + sens.String() + `</ul></div>`
	}

	dialog := doc.CreateElement("div")
	dialog.SetClassName("security-warning-dialog")
	_ = dialog.SetInnerHTML(`<div class="dialog-overlay"></div>` +
		`<div class="dialog-content">` +
		`<div class="dialog-header"><span class="warning-icon">⚠️</span><h3>敏感資料存取警告</h3></div>` +
		`<div class="dialog-body">` +
		`<p class="warning-message">` + html.EscapeString(a.WarningMessage) + `</p>` +
		`<div class="confidentiality-info"><span class="label">保密等級：</span>` +
		`<span class="value ` + strings.ToLower(a.Confidentiality) + `">` + html.EscapeString(d.ZH) + `</span></div>` +
		sensBlock +
		`<p class="legal-notice">存取此資料將被記錄。未經授權揭露敏感資訊可能違反《個人資料保護法》及相關醫療法規。</p>` +
		`</div>` +
		`<div class="dialog-footer"><button class="btn-cancel">取消</button><button class="btn-confirm">我了解，繼續存取</button></div>` +
		`</div>`)

	wire := func(sel string, fn func()) {
		el := dialog.QuerySelector(sel)
		if el == nil {
			return
		}
		el.AddEventListener(dom.EventClick, func(dom.Event) {
			dialog.Remove()
			if fn != nil {
				fn()
			}
		})
	}
	wire(".btn-cancel", onCancel)
	wire(".btn-confirm", onConfirm)
	wire(".dialog-overlay", onCancel)
	return dialog
}

// ShowWarning appends the warning dialog to the body and reports the user's
// choice to decide. With warnings disabled decide(true) runs immediately.
func (s *Service) ShowWarning(doc *dom.Document, a Assessment, decide func(bool)) {
	if !s.cfg.EnableWarnings {
		decide(true)
		return
	}
	body := doc.Body()
	if body == nil {
		decide(true)
		return
	}
	body.AppendChild(CreateWarningDialog(doc, a, func() { decide(true) }, func() { decide(false) }))
}

// InjectStyles adds the security label stylesheet once.
func InjectStyles(doc *dom.Document) {
	if doc.GetElementByID(stylesID) != nil {
		return
	}
	parent := doc.Head()
	if parent == nil {
		return
	}
	style := doc.CreateElement("style")
	style.SetAttr("id", stylesID)
	style.SetText(styles)
	parent.AppendChild(style)
}

const styles = `.security-badge { display: inline-flex; align-items: center; padding: 2px 8px; border-radius: 4px; font-size: 12px; font-weight: 500; margin-left: 8px; }
.security-badge.security-u, .security-badge.security-l, .security-badge.security-n { background: #e8f5e9; color: #2e7d32; }
.security-badge.security-m { background: #fff3e0; color: #e65100; }
.security-badge.security-r { background: #ffebee; color: #c62828; }
.security-badge.security-v { background: #f3e5f5; color: #6a1b9a; animation: pulse 2s infinite; }
@keyframes pulse { 0%, 100% { opacity: 1; } 50% { opacity: 0.7; } }
.sensitivity-icons { margin-left: 4px; }
.sensitivity-icon { margin-left: 2px; font-size: 10px; }
.security-warning-dialog { position: fixed; top: 0; left: 0; right: 0; bottom: 0; z-index: 10000; display: flex; align-items: center; justify-content: center; }
.dialog-overlay { position: absolute; top: 0; left: 0; right: 0; bottom: 0; background: rgba(0, 0, 0, 0.5); }
.dialog-content { position: relative; background: white; border-radius: 8px; max-width: 500px; width: 90%; box-shadow: 0 4px 20px rgba(0, 0, 0, 0.3); }
.dialog-header { display: flex; align-items: center; padding: 16px 20px; border-bottom: 1px solid #eee; }
.dialog-header h3 { margin: 0; color: #c62828; }
.dialog-body { padding: 20px; }
.legal-notice { font-size: 12px; color: #666; background: #fff8e1; padding: 12px; border-radius: 4px; border-left: 3px solid #ffc107; }
.dialog-footer { display: flex; justify-content: flex-end; gap: 12px; padding: 16px 20px; border-top: 1px solid #eee; }
.btn-cancel { background: #e0e0e0; color: #333; }
.btn-confirm { background: #c62828; color: white; }
.masked-field { color: #999; font-style: italic; }
.blur-text { filter: blur(4px); user-select: none; }`
