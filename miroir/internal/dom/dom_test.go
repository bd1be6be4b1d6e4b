package dom

import (
	"strings"
	"testing"
)

func TestParseRenderRoundTrip(t *testing.T) {
	doc, err := Parse(`<html><head><title>T</title></head><body><p>hello</p></body></html>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<title>T</title>") || !strings.Contains(out, "<p>hello</p>") {
		t.Errorf("round trip lost content: %s", out)
	}
}

func TestHeadSynthesizedForFragment(t *testing.T) {
	doc, err := Parse(`<p>bare fragment</p>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	head := doc.Head()
	if head == nil {
		t.Fatal("Head returned nil")
	}
	AppendRaw(head, `<script>x()</script>`)
	out, _ := doc.Render()
	if !strings.Contains(out, "<head><script>x()</script></head>") {
		t.Errorf("script not in head: %s", out)
	}
	if !strings.Contains(out, "<p>bare fragment</p>") {
		t.Errorf("original content lost: %s", out)
	}
}

func TestAppendRawIsVerbatim(t *testing.T) {
	// Payload with characters the serializer would normally escape.
	payload := `<script>if (a < b && c > d) { track("x&y"); }</script>`
	doc, _ := Parse(`<html><body></body></html>`)
	AppendRaw(doc.Body(), payload)
	out, _ := doc.Render()
	if !strings.Contains(out, payload) {
		t.Errorf("raw content was mangled:\n%s", out)
	}
}

func TestAppendFragmentAddressable(t *testing.T) {
	doc, _ := Parse(`<html><head></head><body></body></html>`)
	if err := AppendFragment(doc.Head(), `<script id="mk">1</script>`); err != nil {
		t.Fatalf("AppendFragment: %v", err)
	}
	if doc.FindByID("mk") == nil {
		t.Error("fragment element not addressable by id")
	}
	Remove(doc.FindByID("mk"))
	if doc.FindByID("mk") != nil {
		t.Error("element still present after Remove")
	}
}

func TestAnchorsDocumentOrder(t *testing.T) {
	doc, _ := Parse(`<html><body>
		<a href="/one">One</a>
		<a name="no-href">skip</a>
		<div><a href="/two">Two <b>bold</b></a></div>
	</body></html>`)
	anchors := doc.Anchors()
	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2", len(anchors))
	}
	if Attr(anchors[0], "href") != "/one" || Attr(anchors[1], "href") != "/two" {
		t.Errorf("anchors out of order: %q, %q", Attr(anchors[0], "href"), Attr(anchors[1], "href"))
	}
	if got := TextContent(anchors[1]); got != "Two bold" {
		t.Errorf("TextContent = %q, want %q", got, "Two bold")
	}
}

func TestTextContentKeepsInternalWhitespace(t *testing.T) {
	doc, _ := Parse("<html><body><a href=\"/x\">\n  line one\n  line two\n</a></body></html>")
	want := "line one\n  line two"
	if got := TextContent(doc.Anchors()[0]); got != want {
		t.Errorf("TextContent = %q, want %q", got, want)
	}
}

func TestSetAttrRewritesExisting(t *testing.T) {
	doc, _ := Parse(`<html><body><a href="/old">x</a></body></html>`)
	a := doc.Anchors()[0]
	SetAttr(a, "href", "https://new.example")
	out, _ := doc.Render()
	if !strings.Contains(out, `href="https://new.example"`) {
		t.Errorf("href not rewritten: %s", out)
	}
	if strings.Contains(out, "/old") {
		t.Errorf("old href survived: %s", out)
	}
}

func TestRemoveMarkedRegion(t *testing.T) {
	doc, _ := Parse(`<html><body><p>keep</p></body></html>`)
	body := doc.Body()
	AppendComment(body, "mark:1")
	AppendRaw(body, `<script>doomed()</script>`)
	AppendComment(body, "/mark:1")
	AppendRaw(body, `<p>after</p>`)

	if !doc.RemoveMarkedRegion("mark:1") {
		t.Fatal("region not found")
	}
	out, _ := doc.Render()
	if strings.Contains(out, "doomed") || strings.Contains(out, "mark:1") {
		t.Errorf("region content survived: %s", out)
	}
	if !strings.Contains(out, "<p>keep</p>") || !strings.Contains(out, "<p>after</p>") {
		t.Errorf("surrounding content lost: %s", out)
	}

	if doc.RemoveMarkedRegion("mark:1") {
		t.Error("second removal reported a region")
	}
}

func TestNoscripts(t *testing.T) {
	doc, _ := Parse(`<html><head><noscript><img src="https://t.example/px?id=1"></noscript></head><body></body></html>`)
	ns := doc.Noscripts()
	if len(ns) != 1 {
		t.Fatalf("got %d noscripts, want 1", len(ns))
	}
	if !strings.Contains(RenderNode(ns[0]), "t.example/px?id=1") {
		t.Errorf("noscript content missing: %s", RenderNode(ns[0]))
	}
}
