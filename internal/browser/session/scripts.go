package session

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// probeAction is applied to the element a probe resolves, when it is visible.
type probeAction string

const (
	actionNone  probeAction = ""
	actionFocus probeAction = "focus"
	actionClick probeAction = "click"
)

// probeResult is the JSON shape returned by probeFunction.
type probeResult struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

// probeFunction is called with `this` bound to the game frame's document.
// XPathResult.FIRST_ORDERED_NODE_TYPE is 9.
const probeFunction = `function() {
	const xpath = %s, action = %s;
	const node = this.evaluate(xpath, this, null, 9, null).singleNodeValue;
	if (!node) {
		return {found: false, visible: false, text: ""};
	}
	const style = node.ownerDocument.defaultView.getComputedStyle(node);
	const visible = node.getClientRects().length > 0 &&
		style.display !== "none" && style.visibility !== "hidden";
	if (visible && action === "focus") {
		node.focus();
	}
	if (visible && action === "click") {
		node.click();
	}
	return {found: true, visible: visible, text: (node.textContent || "").trim()};
}`

func probeScript(xpath string, action probeAction) string {
	return fmt.Sprintf(probeFunction, jsonEncode(xpath), jsonEncode(string(action)))
}

// jsonEncode quotes v for injection into a script body.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// frameXPath locates the iframe whose src contains fragment.
func frameXPath(fragment string) string {
	return fmt.Sprintf("//iframe[contains(@src, %s)]", jsonEncode(fragment))
}
