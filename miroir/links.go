package miroir

import (
	"context"

	"github.com/hazyhaar/miroir/miroir/internal/dom"
)

// ListLinks enumerates every anchor carrying an href in the clone markup, in
// document order. The slice position is the link's index; indices are
// positional, so any mutation that adds or removes anchors invalidates a
// previously observed numbering.
func (s *Service) ListLinks(ctx context.Context, owner, id string) ([]Link, error) {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.readDoc(rec.ArtifactRef)
	if err != nil {
		return nil, err
	}

	anchors := doc.Anchors()
	links := make([]Link, 0, len(anchors))
	for i, a := range anchors {
		links = append(links, Link{
			Index: i,
			Text:  dom.TextContent(a),
			Href:  dom.Attr(a, "href"),
		})
	}
	return links, nil
}

// RewriteLink replaces the href of the anchor at the given positional index.
// The index refers to the document's current anchor enumeration, the same
// one ListLinks reports.
func (s *Service) RewriteLink(ctx context.Context, owner, id string, index int, newHref string) error {
	if err := validateHref(newHref); err != nil {
		return err
	}
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.readDoc(rec.ArtifactRef)
	if err != nil {
		return err
	}

	anchors := doc.Anchors()
	if index < 0 || index >= len(anchors) {
		return ErrLinkIndexOutOfRange
	}
	dom.SetAttr(anchors[index], "href", newHref)

	if err := s.writeDoc(rec.ArtifactRef, doc); err != nil {
		return err
	}
	if err := s.touch(ctx, id, owner); err != nil {
		return err
	}

	s.logEvent(ctx, "link_rewritten", id, owner, true, map[string]string{"href": newHref})
	return nil
}
