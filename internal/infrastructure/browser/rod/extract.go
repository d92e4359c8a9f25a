package rod

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"browserx/internal/domain/entity"
)

// extractJS strips ids of earlier generations, labels every visible
// interactive element first and content landmarks second, and returns the
// records as a JSON string.
const extractJS = `(gen, idAttr, genAttr, maxText) => {
	document.querySelectorAll('[' + idAttr + ']').forEach(el => {
		el.removeAttribute(idAttr);
		el.removeAttribute(genAttr);
	});

	const interactive = [
		'a[href]', 'button', 'input:not([type="hidden"])', 'textarea', 'select',
		'[role="button"]', '[role="link"]', '[role="tab"]', '[role="checkbox"]',
		'[role="option"]', '[role="menuitem"]', '[onclick]', '[data-testid]',
	];
	const content = ['h1', 'h2', 'h3', 'h4', 'main', 'article', 'section', '[role="main"]'];

	const visible = el => {
		const r = el.getBoundingClientRect();
		if (r.width <= 0 || r.height <= 0) return false;
		if (el.hidden || el.getAttribute('aria-hidden') === 'true') return false;
		const s = window.getComputedStyle(el);
		return s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	};

	const seen = new Set();
	const out = [];
	const collect = selectors => {
		for (const el of document.querySelectorAll(selectors.join(', '))) {
			if (seen.has(el) || !visible(el)) continue;
			seen.add(el);
			const r = el.getBoundingClientRect();
			const id = 'bx-' + out.length;
			el.setAttribute(idAttr, id);
			el.setAttribute(genAttr, String(gen));
			const text = ((el.innerText || '').replace(/\s+/g, ' ').trim() ||
				el.getAttribute('aria-label') || el.getAttribute('placeholder') ||
				el.getAttribute('title') || el.value || '').slice(0, maxText);
			out.push({
				bx_id: id,
				x: Math.round(r.left),
				y: Math.round(r.top),
				text: text,
				tag: el.tagName.toLowerCase(),
				role: el.getAttribute('role') || '',
			});
		}
	};
	collect(interactive);
	collect(content);
	return JSON.stringify(out);
}`

const scrollJS = `(dir) => window.scrollBy(0, (dir === 'up' ? -1 : 1) * Math.round(window.innerHeight * 0.7))`

const pageTextJS = `() => document.body ? document.body.innerText : ''`

func decodeElements(raw string) ([]entity.PageElement, error) {
	var elements []entity.PageElement
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, err
	}
	for i := range elements {
		el := &elements[i]
		el.Text = capRunes(strings.TrimSpace(el.Text), entity.MaxElementText)
		if el.Role == "" {
			el.Role = entity.RoleNotApplicable
		}
	}
	return elements, nil
}

func capRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// navigatedAway reports an evaluation that failed because the document was
// replaced while the script ran.
func navigatedAway(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Execution context was destroyed") ||
		strings.Contains(msg, "Cannot find context with specified id") ||
		strings.Contains(msg, "Inspected target navigated or closed")
}
