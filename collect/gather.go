package collect

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/taptarget/geom"
	"github.com/hazyhaar/taptarget/tapaudit"
)

// TappableSelector matches the elements a user can tap.
const TappableSelector = `button, a, input, textarea, select, option, ` +
	`[role=button], [role=checkbox], [role=link], [role=menuitem], ` +
	`[role=menuitemcheckbox], [role=menuitemradio], [role=option], ` +
	`[role=scrollbar], [role=slider], [role=spinbutton]`

// GatherScript runs in the page and returns the tap targets as a JSON
// string. Rects are in page coordinates.
//
// Skipped elements: invisible ones, links flowing inside a paragraph of
// text, and fixed or sticky ones (their position depends on scroll).
// A rect is dropped when another element covers its centre.
const GatherScript = `() => {
  const selector = ` + "`" + TappableSelector + "`" + `;
  const sx = window.scrollX, sy = window.scrollY;
  const vw = window.innerWidth, vh = window.innerHeight;

  const visible = (el) => {
    const st = getComputedStyle(el);
    return st.display !== 'none' && st.visibility !== 'hidden' && st.opacity !== '0';
  };

  const positioned = (el) => {
    for (let n = el; n && n !== document.body; n = n.parentElement) {
      const p = getComputedStyle(n).position;
      if (p === 'fixed' || p === 'sticky') return true;
    }
    return false;
  };

  const inTextBlock = (el) => {
    if (getComputedStyle(el).display !== 'inline') return false;
    const parent = el.parentElement;
    if (!parent) return false;
    for (const n of parent.childNodes) {
      if (n.nodeType === Node.TEXT_NODE && n.textContent.trim().length > 0) return true;
    }
    return false;
  };

  const onTop = (el, r) => {
    const x = r.left + r.width / 2, y = r.top + r.height / 2;
    if (x < 0 || y < 0 || x > vw || y > vh) return true;
    const hit = document.elementFromPoint(x, y);
    return hit !== null && (hit === el || el.contains(hit) || hit.contains(el));
  };

  const rectsOf = (el) => {
    const out = [];
    const collect = (n) => {
      for (const r of n.getClientRects()) {
        if (r.width > 0 && r.height > 0 && onTop(el, r)) {
          out.push({left: r.left + sx, top: r.top + sy, width: r.width, height: r.height});
        }
      }
      for (const c of n.children) {
        if (visible(c)) collect(c);
      }
    };
    collect(el);
    return out;
  };

  const pathOf = (el) => {
    const parts = [];
    for (let n = el; n && n.parentNode; n = n.parentNode) {
      const idx = n.parentNode.children ? Array.prototype.indexOf.call(n.parentNode.children, n) : 0;
      parts.unshift(idx + ',' + (n.nodeName || ''));
    }
    return parts.join(',');
  };

  const selectorOf = (el) => {
    let s = el.tagName.toLowerCase();
    if (el.id) s += '#' + el.id;
    if (typeof el.className === 'string' && el.className.trim()) {
      s += '.' + el.className.trim().split(/\s+/).slice(0, 3).join('.');
    }
    return s;
  };

  const snippetOf = (el) => {
    const clone = el.cloneNode(false);
    let html = clone.outerHTML;
    if (html.length > 500) html = html.slice(0, 500) + '…';
    return html;
  };

  const labelOf = (el) => {
    const t = (el.getAttribute('aria-label') || el.innerText || el.value || el.title || '').trim();
    return t.length > 80 ? t.slice(0, 80) + '…' : t;
  };

  const targets = [];
  for (const el of document.querySelectorAll(selector)) {
    if (!visible(el) || positioned(el) || inTextBlock(el)) continue;
    const rects = rectsOf(el);
    if (rects.length === 0) continue;
    targets.push({
      clientRects: rects,
      href: el.href || '',
      snippet: snippetOf(el),
      path: pathOf(el),
      selector: selectorOf(el),
      nodeLabel: labelOf(el),
    });
  }
  return JSON.stringify(targets);
}`

// gatheredTarget is the JSON shape emitted by GatherScript.
type gatheredTarget struct {
	ClientRects []geom.Rect `json:"clientRects"`
	Href        string      `json:"href"`
	Snippet     string      `json:"snippet"`
	Path        string      `json:"path"`
	Selector    string      `json:"selector"`
	NodeLabel   string      `json:"nodeLabel"`
}

// DecodeTargets parses GatherScript output. Rects without area are dropped;
// a target left with no rect is kept and is never audited.
func DecodeTargets(data []byte) ([]tapaudit.Target, error) {
	var raw []gatheredTarget
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("collect: decode targets: %w", err)
	}
	targets := make([]tapaudit.Target, 0, len(raw))
	for _, g := range raw {
		rects := make([]geom.Rect, 0, len(g.ClientRects))
		for _, r := range g.ClientRects {
			if r.Width > 0 && r.Height > 0 {
				rects = append(rects, r)
			}
		}
		targets = append(targets, tapaudit.Target{
			ClientRects: rects,
			Href:        g.Href,
			Node: tapaudit.Node{
				Snippet:   g.Snippet,
				Path:      g.Path,
				Selector:  g.Selector,
				NodeLabel: g.NodeLabel,
			},
		})
	}
	return targets, nil
}
