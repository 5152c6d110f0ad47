package chrome

import (
	"encoding/json"
	"fmt"

	"github.com/hairizuan-noorazman/ui-harness/browser"
)

const snapshotScript = `(() => {
  const body = document.body;
  return {
    url: location.href,
    bodyAttached: !!body && body.childElementCount > 0,
    html: document.documentElement ? document.documentElement.outerHTML : "",
    text: body ? body.innerText.trim() : "",
  };
})()`

// resolveTemplate finds one element. Arguments: strategy, value, role, ref attribute, ref.
// Flutter's semantics layer exposes controls as flt-semantics nodes carrying
// aria-label, so text matching also considers accessible labels.
const resolveTemplate = `((strategy, value, role, attr, ref) => {
  const labelOf = (el) => (el.getAttribute("aria-label") || "").trim();
  const roleOf = (el) => {
    const explicit = el.getAttribute("role");
    if (explicit) return explicit;
    const tag = el.tagName.toLowerCase();
    if (tag === "button") return "button";
    if (tag === "a") return "link";
    if (tag === "input" || tag === "textarea") {
      const t = (el.getAttribute("type") || "text").toLowerCase();
      if (t === "submit" || t === "button") return "button";
      if (t === "checkbox") return "checkbox";
      return "textbox";
    }
    return "";
  };
  let el = null;
  if (strategy === "attribute-match") {
    el = document.querySelector(value);
  } else if (strategy === "role-label") {
    el = Array.from(document.querySelectorAll("[aria-label]"))
      .find((n) => labelOf(n) === value && (!role || roleOf(n) === role)) || null;
  } else {
    const skip = new Set(["SCRIPT", "STYLE", "NOSCRIPT"]);
    for (const n of document.body ? document.body.querySelectorAll("*") : []) {
      if (skip.has(n.tagName)) continue;
      if ((n.textContent || "").includes(value) || labelOf(n).includes(value)) {
        if (!el || el.contains(n)) el = n;
      }
    }
  }
  document.querySelectorAll("[" + attr + "]").forEach((n) => n.removeAttribute(attr));
  if (!el) return {Found: false};
  el.setAttribute(attr, ref);
  const style = getComputedStyle(el);
  const rect = el.getBoundingClientRect();
  const visible = style.display !== "none" && style.visibility !== "hidden" &&
    parseFloat(style.opacity || "1") > 0 && (rect.width > 0 || rect.height > 0);
  const enabled = !el.disabled && el.getAttribute("aria-disabled") !== "true" &&
    !el.closest("fieldset[disabled]");
  const tag = el.tagName.toLowerCase();
  const editable = enabled && !el.readOnly &&
    (tag === "textarea" || el.isContentEditable ||
     (tag === "input" && !["submit","button","checkbox","radio","hidden","file","image","reset"]
        .includes((el.getAttribute("type") || "text").toLowerCase())));
  return {
    Found: true,
    Visible: visible,
    Enabled: enabled,
    Editable: editable,
    Value: "value" in el && typeof el.value === "string" ? el.value : "",
    Text: (el.innerText || el.textContent || labelOf(el)).trim(),
  };
})(%s, %s, %s, %s, %s)`

// resolveScript renders the resolver with JSON-encoded arguments.
func resolveScript(sel browser.Selector, ref string) (string, error) {
	args := []string{string(sel.Strategy), sel.Value, sel.Role, refAttr, ref}
	encoded := make([]interface{}, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode selector argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf(resolveTemplate, encoded...), nil
}
