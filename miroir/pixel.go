package miroir

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/miroir/miroir/internal/dom"
)

// pixelBlock builds the analytics bootstrap block for a pixel id. The
// <script> carries the well-known marker id so later operations can detect
// and remove the block; the <noscript> fallback beacons a PageView for
// script-less clients.
func pixelBlock(pixelID string) string {
	return fmt.Sprintf(`<script id=%q>
!function(f,b,e,v,n,t,s)
{if(f.fbq)return;n=f.fbq=function(){n.callMethod?
n.callMethod.apply(n,arguments):n.queue.push(arguments)};
if(!f._fbq)f._fbq=n;n.push=n;n.loaded=!0;n.version='2.0';
n.queue=[];t=b.createElement(e);t.async=!0;
t.src=v;s=b.getElementsByTagName(e)[0];
s.parentNode.insertBefore(t,s)}(window, document,'script',
'https://connect.facebook.net/en_US/fbevents.js');
fbq('init', '%s');
fbq('track', 'PageView');
</script>
<noscript><img height="1" width="1" style="display:none"
src="https://www.facebook.com/tr?id=%s&ev=PageView&noscript=1"
/></noscript>`, PixelMarkerID, pixelID, pixelID)
}

// injectPixelBlock appends the pixel bootstrap block to <head>. The block is
// parsed as a fragment so the marker script stays addressable by id.
func injectPixelBlock(doc *dom.Doc, pixelID string) error {
	return dom.AppendFragment(doc.Head(), pixelBlock(pixelID))
}

// InjectPixel installs the analytics pixel into the clone markup and records
// the pixel id in the registry. At most one pixel per clone: injecting while
// the registry already tracks a pixel is a conflict, same id included; use
// RemovePixel first. A marker block left in the artifact by an earlier
// registry write failure does not conflict, retrying completes the registry
// side without doubling the block.
func (s *Service) InjectPixel(ctx context.Context, owner, id, pixelID string) error {
	if err := validatePixelID(pixelID); err != nil {
		return err
	}
	// The conflict gate must see the committed registry state, so the
	// record is read under the clone lock.
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	if rec.PixelID != nil {
		return fmt.Errorf("%w: clone already carries a pixel", ErrPixelAlreadySet)
	}

	doc, err := s.readDoc(rec.ArtifactRef)
	if err != nil {
		return err
	}

	if doc.FindByID(PixelMarkerID) == nil {
		if err := injectPixelBlock(doc, pixelID); err != nil {
			return fmt.Errorf("%w: pixel fragment: %v", ErrStorage, err)
		}
		if err := s.writeDoc(rec.ArtifactRef, doc); err != nil {
			return err
		}
	}
	if err := s.store.UpdatePixel(ctx, id, owner, &pixelID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logEvent(ctx, "pixel_injected", id, owner, true, map[string]string{"pixel_id": pixelID})
	return nil
}

// RemovePixel strips the pixel block from the markup and clears the tracked
// pixel id. Succeeds even when the markup no longer contains the block (for
// example after ReplaceHTML); the registry is still cleared.
func (s *Service) RemovePixel(ctx context.Context, owner, id string) error {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	if rec.PixelID == nil {
		return ErrNoPixelSet
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.readDoc(rec.ArtifactRef)
	if err != nil {
		return err
	}

	dom.Remove(doc.FindByID(PixelMarkerID))
	beacon := "facebook.com/tr?id=" + *rec.PixelID
	for _, ns := range doc.Noscripts() {
		if strings.Contains(dom.RenderNode(ns), beacon) {
			dom.Remove(ns)
		}
	}

	if err := s.writeDoc(rec.ArtifactRef, doc); err != nil {
		return err
	}
	if err := s.store.UpdatePixel(ctx, id, owner, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logEvent(ctx, "pixel_removed", id, owner, true, nil)
	return nil
}
