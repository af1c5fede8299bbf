package dom

import "strconv"

// The identifier index lives on Document as ids. Every attached element is
// present under its current id.

// checkIDs validates every identifier in n against the index and against
// n itself. Owners inside replaced are treated as leaving.
func (d *Document) checkIDs(n Node, replaced Node) error {
	seen := make(map[string]bool)
	var err error
	walk(n, func(x Node) {
		el, ok := x.(*Element)
		if !ok || el.id == "" || err != nil {
			return
		}
		if seen[el.id] {
			err = &DuplicateIDError{ID: el.id}
			return
		}
		seen[el.id] = true
		other, taken := d.ids[el.id]
		if !taken || other == el {
			return
		}
		if r, ok := replaced.(*Element); ok && r.Contains(other) {
			return
		}
		err = &DuplicateIDError{ID: el.id}
	})
	return err
}

// attach binds n and its descendants to d. Explicit ids are indexed first
// so generated ids never collide with one further down the subtree.
func (d *Document) attach(n Node) {
	var anonymous []*Element
	walk(n, func(x Node) {
		x.link().setDocument(d)
		if el, ok := x.(*Element); ok {
			if el.id == "" {
				anonymous = append(anonymous, el)
				return
			}
			d.ids[el.id] = el
		}
	})
	for _, el := range anonymous {
		el.id = d.newID()
		d.ids[el.id] = el
	}
}

// detachTree unbinds n and its descendants from d.
func (d *Document) detachTree(n Node) {
	walk(n, func(x Node) {
		x.link().setDocument(nil)
		if el, ok := x.(*Element); ok && d.ids[el.id] == el {
			delete(d.ids, el.id)
		}
	})
}

func (d *Document) changeID(el *Element, before, after string) {
	if d.ids[before] == el {
		delete(d.ids, before)
	}
	el.id = after
	d.ids[after] = el
}

// newID returns a generated identifier not present in the index.
func (d *Document) newID() string {
	for {
		d.autoID++
		id := "_e" + strconv.FormatUint(d.autoID, 10)
		if _, taken := d.ids[id]; !taken {
			return id
		}
	}
}

// ElementByID looks up an attached element.
func (d *Document) ElementByID(id string) (*Element, bool) {
	el, ok := d.ids[id]
	return el, ok
}

// ElementCount returns the number of attached elements.
func (d *Document) ElementCount() int { return len(d.ids) }
