package miroir

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/miroir/miroir/internal/dom"
	"github.com/hazyhaar/miroir/miroir/internal/store"
)

func scriptMarker(scriptID string) string {
	return "miroir:script:" + scriptID
}

// appendMarkedScript inserts content verbatim into container, flanked by a
// comment pair naming the script id. The markers make removal structural;
// the content itself is never escaped or reformatted.
func appendMarkedScript(container *dom.Doc, location, scriptID, content string) {
	parent := container.Body()
	if location == LocationHead {
		parent = container.Head()
	}
	marker := scriptMarker(scriptID)
	dom.AppendComment(parent, marker)
	dom.AppendRaw(parent, content)
	dom.AppendComment(parent, "/"+marker)
}

// AddScript inserts content into the clone at the given location and records
// it in the registry. The content is stored exactly as provided; callers own
// its well-formedness.
func (s *Service) AddScript(ctx context.Context, owner, id, content, location string) (*Script, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyScript
	}
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.readDoc(rec.ArtifactRef)
	if err != nil {
		return nil, err
	}

	scriptID := s.newID()
	appendMarkedScript(doc, location, scriptID, content)

	if err := s.writeDoc(rec.ArtifactRef, doc); err != nil {
		return nil, err
	}

	row := &store.Script{ID: scriptID, Content: content, Location: location}
	if err := s.store.AddScript(ctx, id, owner, row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logEvent(ctx, "script_added", id, owner, true, map[string]string{"script_id": scriptID, "location": location})
	return &Script{ID: scriptID, Content: content, Location: location, CreatedAt: row.CreatedAt}, nil
}

// RemoveScript deletes a tracked script from the markup and the registry.
// Removal is structural when the marker comments survive in the artifact;
// otherwise it falls back to excising the first exact occurrence of the
// stored content from the raw markup.
func (s *Service) RemoveScript(ctx context.Context, owner, id, scriptID string) error {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	var target *store.Script
	for _, sc := range rec.Scripts {
		if sc.ID == scriptID {
			target = sc
			break
		}
	}
	if target == nil {
		return ErrScriptNotFound
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	markup, err := s.blobs.Read(rec.ArtifactRef)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	doc, err := dom.Parse(markup)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrStorage, err)
	}
	if doc.RemoveMarkedRegion(scriptMarker(scriptID)) {
		if err := s.writeDoc(rec.ArtifactRef, doc); err != nil {
			return err
		}
	} else if strings.Contains(markup, target.Content) {
		patched := strings.Replace(markup, target.Content, "", 1)
		if err := s.blobs.Write(rec.ArtifactRef, patched); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	// When neither the markers nor the content survive (manual HTML
	// replacement), there is nothing to excise; the registry entry still
	// goes away.

	if err := s.store.RemoveScript(ctx, id, owner, scriptID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logEvent(ctx, "script_removed", id, owner, true, map[string]string{"script_id": scriptID})
	return nil
}
