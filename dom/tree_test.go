package dom

import (
	"errors"
	"strconv"
	"testing"

	"github.com/hazyhaar/domsync/delta"
)

func recordingDoc(t *testing.T) *Document {
	t.Helper()
	d := NewDocument("doc-1")
	d.OpenEventQueue()
	return d
}

func types(list []delta.Delta) []delta.Type {
	out := make([]delta.Type, len(list))
	for i, d := range list {
		out[i] = d.DeltaType()
	}
	return out
}

func wantTypes(t *testing.T, got []delta.Delta, want ...delta.Type) {
	t.Helper()
	g := types(got)
	if len(g) != len(want) {
		t.Fatalf("deltas: got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("deltas: got %v, want %v", g, want)
		}
	}
}

func TestNewDocumentShape(t *testing.T) {
	d := NewDocument("x")
	if d.Root().Tag() != "html" || d.Head().Parent() != d.Root() || d.Body().Parent() != d.Root() {
		t.Fatal("document root must be html with head and body children")
	}
	for _, el := range []*Element{d.Root(), d.Head(), d.Body()} {
		if el.ID() == "" {
			t.Errorf("%s: attached element without id", el.Tag())
		}
		if got, _ := d.ElementByID(el.ID()); got != el {
			t.Errorf("%s: not in identifier index", el.Tag())
		}
	}
	if d.Recording() {
		t.Error("new document must not be recording")
	}
}

func TestAppendTextRemoveRoundTrip(t *testing.T) {
	d := recordingDoc(t)
	span := NewElementWithID("span", "a")
	if err := d.Body().AppendChild(span); err != nil {
		t.Fatal(err)
	}
	span.SetInnerText("x")
	if err := d.Body().RemoveAt(0); err != nil {
		t.Fatal(err)
	}

	list := d.Drain()
	wantTypes(t, list, delta.TypeAppend, delta.TypeTextModified, delta.TypeRemove)

	ap := list[0].(delta.Append)
	if ap.ParentID != d.Body().ID() || ap.Node.TagName != "span" {
		t.Errorf("Append: got %+v", ap)
	}
	tm := list[1].(delta.TextModified)
	if tm.ParentElementID != "a" || tm.ChildNodeIndex != 0 || tm.Text != "x" {
		t.Errorf("TextModified: got %+v", tm)
	}
	rm := list[2].(delta.Remove)
	if rm.ParentID != d.Body().ID() || rm.ChildIndex != 0 {
		t.Errorf("Remove: got %+v", rm)
	}
	if _, ok := d.ElementByID("a"); ok {
		t.Error("removed element still indexed")
	}
	if d.Drain() != nil {
		t.Error("second drain must be empty")
	}
}

func TestNothingRecordedBeforeOpen(t *testing.T) {
	d := NewDocument("x")
	div := NewElement("div")
	if err := d.Body().AppendChild(div); err != nil {
		t.Fatal(err)
	}
	_ = div.SetAttribute("class", "c")
	div.SetInnerText("hello")
	if d.HasPendingChanges() {
		t.Fatalf("pending before OpenEventQueue: %v", types(d.Drain()))
	}
	if div.ID() == "" {
		t.Fatal("attached element did not get a generated id")
	}
}

func TestWriteSuppression(t *testing.T) {
	d := recordingDoc(t)
	div := NewElementWithID("div", "d")
	_ = d.Body().AppendChild(div)
	d.Drain()

	_ = div.SetAttribute("class", "c")
	_ = div.SetAttribute("class", "c")
	div.SetInnerText("t")
	div.SetInnerText("t")
	_ = div.SetID("d")
	div.SetChecked(false)
	_ = div.RemoveAttribute("missing")
	_ = div.SetFlagAttribute("hidden", true)
	_ = div.SetFlagAttribute("hidden", true)

	wantTypes(t, d.Drain(), delta.TypeAttributeEdited, delta.TypeTextModified, delta.TypeAttributeEdited)
}

func TestSpecialAttributes(t *testing.T) {
	d := recordingDoc(t)
	in := NewElementWithID("input", "i")
	_ = d.Body().AppendChild(in)
	d.Drain()

	_ = in.SetAttribute("value", "5")
	_ = in.SetAttribute("checked", "")
	_ = in.RemoveAttribute("checked")
	_ = in.SetAttribute("id", "j")

	list := d.Drain()
	wantTypes(t, list, delta.TypeSetValue, delta.TypeSetChecked, delta.TypeSetChecked, delta.TypeSetID)
	if sv := list[0].(delta.SetValue); sv.ElementID != "i" || sv.Value != "5" {
		t.Errorf("SetValue: got %+v", sv)
	}
	if sc := list[2].(delta.SetChecked); sc.Checked {
		t.Error("SetChecked after removal must be false")
	}
	if sid := list[3].(delta.SetID); sid.OldID != "i" || sid.NewID != "j" {
		t.Errorf("SetID: got %+v", sid)
	}
	if got, _ := d.ElementByID("j"); got != in {
		t.Error("index not updated after id change")
	}
	if _, ok := d.ElementByID("i"); ok {
		t.Error("old id still indexed")
	}
}

func TestDuplicateIDLeavesTreeUntouched(t *testing.T) {
	d := recordingDoc(t)
	a := NewElementWithID("div", "a")
	b := NewElementWithID("div", "b")
	_ = d.Body().AppendChild(a)
	_ = d.Body().AppendChild(b)
	d.Drain()

	err := b.SetID("a")
	var dup *DuplicateIDError
	if !errors.As(err, &dup) || dup.ID != "a" || !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("SetID: got %v, want duplicate id a", err)
	}
	if b.ID() != "b" {
		t.Errorf("id changed to %q after failure", b.ID())
	}
	if got, _ := d.ElementByID("b"); got != b {
		t.Error("old key lost after failed id change")
	}

	sub := NewElement("section")
	_ = sub.AppendChild(NewElementWithID("p", "fresh"))
	_ = sub.AppendChild(NewElementWithID("p", "b"))
	if err := d.Body().AppendChild(sub); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("AppendChild: got %v, want ErrDuplicateID", err)
	}
	if d.Body().ChildCount() != 2 {
		t.Errorf("body children: got %d, want 2", d.Body().ChildCount())
	}
	if _, ok := d.ElementByID("fresh"); ok {
		t.Error("partial subtree registered")
	}
	if d.HasPendingChanges() {
		t.Error("failed operations must not record")
	}
}

func TestIndexErrors(t *testing.T) {
	d := recordingDoc(t)
	body := d.Body()
	cases := []struct {
		name string
		err  error
	}{
		{"insert", body.InsertChild(1, NewElement("p"))},
		{"insert negative", body.InsertChild(-1, NewElement("p"))},
		{"remove", body.RemoveAt(0)},
		{"replace", body.ReplaceChild(0, NewElement("p"))},
		{"swap", body.SwapChildren(0, 1)},
	}
	for _, c := range cases {
		if !errors.Is(c.err, ErrOutOfRange) {
			t.Errorf("%s: got %v, want ErrOutOfRange", c.name, c.err)
		}
	}
	if err := body.RemoveChild(NewText("x")); !errors.Is(err, ErrNotChild) {
		t.Errorf("RemoveChild: got %v, want ErrNotChild", err)
	}
	if err := body.AppendChild(nil); !errors.Is(err, ErrNilNode) {
		t.Errorf("AppendChild(nil): got %v", err)
	}
}

func TestCycleAndRoot(t *testing.T) {
	d := recordingDoc(t)
	outer := NewElement("div")
	inner := NewElement("div")
	_ = outer.AppendChild(inner)
	_ = d.Body().AppendChild(outer)

	if err := inner.AppendChild(outer); !errors.Is(err, ErrCycle) {
		t.Errorf("ancestor under descendant: got %v, want ErrCycle", err)
	}
	if err := outer.AppendChild(outer); !errors.Is(err, ErrCycle) {
		t.Errorf("self append: got %v, want ErrCycle", err)
	}
	other := NewDocument("y")
	if err := other.Body().AppendChild(d.Root()); !errors.Is(err, ErrRootNode) {
		t.Errorf("moving a root: got %v, want ErrRootNode", err)
	}
}

func TestMoveWithinDocument(t *testing.T) {
	d := recordingDoc(t)
	left := NewElementWithID("div", "left")
	right := NewElementWithID("div", "right")
	item := NewElementWithID("span", "item")
	_ = d.Body().AppendChild(left)
	_ = d.Body().AppendChild(right)
	_ = left.AppendChild(item)
	d.Drain()

	if err := right.AppendChild(item); err != nil {
		t.Fatal(err)
	}
	list := d.Drain()
	wantTypes(t, list, delta.TypeRemove, delta.TypeAppend)
	if rm := list[0].(delta.Remove); rm.ParentID != "left" {
		t.Errorf("Remove parent: got %q", rm.ParentID)
	}
	if item.Parent() != right {
		t.Error("item not moved")
	}
	if got, _ := d.ElementByID("item"); got != item {
		t.Error("moved element lost its index entry")
	}
}

func TestMoveWithinSameParent(t *testing.T) {
	d := recordingDoc(t)
	a, b, c := NewElementWithID("i", "a"), NewElementWithID("i", "b"), NewElementWithID("i", "c")
	for _, el := range []*Element{a, b, c} {
		_ = d.Body().AppendChild(el)
	}
	if err := d.Body().InsertChild(2, a); err != nil {
		t.Fatal(err)
	}
	got := ""
	for _, n := range d.Body().Children() {
		got += n.(*Element).ID()
	}
	if got != "bca" {
		t.Fatalf("order: got %q, want %q", got, "bca")
	}
}

func TestReplaceChildKeepsID(t *testing.T) {
	d := recordingDoc(t)
	old := NewElementWithID("div", "panel")
	_ = old.AppendChild(NewElementWithID("p", "inner"))
	_ = d.Body().AppendChild(old)
	d.Drain()

	fresh := NewElementWithID("div", "panel")
	if err := d.Body().ReplaceChild(0, fresh); err != nil {
		t.Fatal(err)
	}
	list := d.Drain()
	wantTypes(t, list, delta.TypeRender)
	r := list[0].(delta.Render)
	if r.Locator.StartingID != d.Body().ID() || r.Locator.ChildIndex == nil || *r.Locator.ChildIndex != 0 {
		t.Errorf("Render locator: got %+v", r.Locator)
	}
	if got, _ := d.ElementByID("panel"); got != fresh {
		t.Error("index must point at the replacement")
	}
	if _, ok := d.ElementByID("inner"); ok {
		t.Error("replaced subtree still indexed")
	}
	if old.Parent() != nil || old.Document() != nil {
		t.Error("replaced element still linked")
	}
}

func TestClearAndSwap(t *testing.T) {
	d := recordingDoc(t)
	ul := NewElementWithID("ul", "list")
	_ = d.Body().AppendChild(ul)
	for _, id := range []string{"one", "two"} {
		_ = ul.AppendChild(NewElementWithID("li", id))
	}
	d.Drain()

	if err := ul.SwapChildren(0, 1); err != nil {
		t.Fatal(err)
	}
	if ul.Child(0).(*Element).ID() != "two" {
		t.Error("swap did not reorder")
	}
	ul.ClearChildren()
	ul.ClearChildren()
	wantTypes(t, d.Drain(), delta.TypeSwapChildren, delta.TypeClearChildren)
	if _, ok := d.ElementByID("one"); ok {
		t.Error("cleared child still indexed")
	}
}

func TestSelfRemoveByID(t *testing.T) {
	d := recordingDoc(t)
	el := NewElementWithID("div", "gone")
	_ = d.Body().AppendChild(el)
	d.Drain()
	el.Remove()
	list := d.Drain()
	wantTypes(t, list, delta.TypeRemoveElement)
	if list[0].(delta.RemoveElement).ElementID != "gone" {
		t.Errorf("RemoveElement: got %+v", list[0])
	}
}

func TestUnrenderedSubtree(t *testing.T) {
	d := recordingDoc(t)
	box := NewElementWithID("div", "box")
	_ = d.Body().AppendChild(box)
	d.Drain()

	box.SetRendered(false)
	_ = box.SetAttribute("class", "hidden-change")
	_ = box.AppendText("not sent")
	box.SetRendered(true)

	list := d.Drain()
	wantTypes(t, list, delta.TypeUnRender, delta.TypeRender)
	r := list[1].(delta.Render)
	if cls, _ := r.Node.Attr("class"); cls != "hidden-change" {
		t.Errorf("Render content missing state changed while hidden: %+v", r.Node)
	}
	if len(r.Node.Children) != 1 {
		t.Errorf("Render children: got %d, want 1", len(r.Node.Children))
	}
}

func TestTextNodeOperations(t *testing.T) {
	d := recordingDoc(t)
	p := NewElementWithID("p", "p")
	_ = d.Body().AppendChild(p)
	t1, t2 := NewText("a"), NewText("b")
	_ = p.AppendChild(t1)
	_ = p.AppendChild(t2)
	d.Drain()

	t2.SetText("<c>")
	if t2.Data() != "&lt;c&gt;" || t2.Text() != "<c>" {
		t.Errorf("text encoding: data %q text %q", t2.Data(), t2.Text())
	}
	t1.Remove()
	list := d.Drain()
	wantTypes(t, list, delta.TypeTextModified, delta.TypeRemove)
	if tm := list[0].(delta.TextModified); tm.ChildNodeIndex != 1 {
		t.Errorf("TextModified index: got %d, want 1", tm.ChildNodeIndex)
	}
	if p.InnerText() != "<c>" {
		t.Errorf("InnerText: got %q", p.InnerText())
	}
}

func TestClearIDAssignsGenerated(t *testing.T) {
	d := recordingDoc(t)
	el := NewElementWithID("div", "named")
	_ = d.Body().AppendChild(el)
	d.Drain()
	if err := el.RemoveAttribute("id"); err != nil {
		t.Fatal(err)
	}
	if el.ID() == "" || el.ID() == "named" {
		t.Fatalf("ClearID: got id %q", el.ID())
	}
	wantTypes(t, d.Drain(), delta.TypeSetID)
}

func TestGeneratedIDsAvoidExplicitDescendants(t *testing.T) {
	d := recordingDoc(t)
	box := NewElement("div")
	var inner []*Element
	for i := 1; i <= 8; i++ {
		id := "_e" + strconv.Itoa(i)
		if _, taken := d.ElementByID(id); taken {
			continue
		}
		el := NewElementWithID("span", id)
		inner = append(inner, el)
		if err := box.AppendChild(el); err != nil {
			t.Fatal(err)
		}
	}
	wrapper := NewElement("p")
	if err := box.AppendChild(wrapper); err != nil {
		t.Fatal(err)
	}
	if err := d.Body().AppendChild(box); err != nil {
		t.Fatal(err)
	}

	seen := map[string]*Element{}
	for _, el := range append([]*Element{box, wrapper}, inner...) {
		if prev, dup := seen[el.ID()]; dup {
			t.Fatalf("%s and %s share id %q", prev.Tag(), el.Tag(), el.ID())
		}
		seen[el.ID()] = el
		if got, _ := d.ElementByID(el.ID()); got != el {
			t.Errorf("index for %q points elsewhere", el.ID())
		}
	}
}

func TestApplyClientValuesIsSilent(t *testing.T) {
	d := recordingDoc(t)
	in := NewElementWithID("input", "name")
	_ = d.Body().AppendChild(in)
	d.Drain()

	v, on := "typed", true
	d.ApplyClientValues([]ClientValue{
		{ElementID: "name", Value: &v, Checked: &on},
		{ElementID: "unknown", Value: &v},
	})
	if in.Value() != "typed" || !in.Checked() {
		t.Errorf("values not applied: value %q checked %v", in.Value(), in.Checked())
	}
	if d.HasPendingChanges() {
		t.Error("client values must not record deltas")
	}
}

func TestNavigate(t *testing.T) {
	d := NewDocument("x")
	d.Navigate("/login")
	if d.Redirect() != "/login" || d.HasPendingChanges() {
		t.Fatal("Navigate before recording must set a redirect")
	}
	d.OpenEventQueue()
	d.Navigate("/next")
	list := d.Drain()
	wantTypes(t, list, delta.TypeReplace)
	if list[0].(delta.Replace).Location != "/next" {
		t.Errorf("Replace: got %+v", list[0])
	}
}
