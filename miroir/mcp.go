package miroir

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/miroir/kit"
)

// RegisterMCP registers the clone engine tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerListClonesTool(srv)
	s.registerClonePageTool(srv)
	s.registerInjectPixelTool(srv)
	s.registerAddScriptTool(srv)
	s.registerListLinksTool(srv)
	s.registerRewriteLinkTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

// --- list_clones ---

type listClonesRequest struct {
	OwnerID string `json:"owner_id"`
}

func (s *Service) registerListClonesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_list_clones",
		Description: "List an owner's page clones with their tracked pixel and scripts, newest first.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Owner whose clones to list"},
		}, []string{"owner_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*listClonesRequest)
		return s.List(ctx, rr.OwnerID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[listClonesRequest])
}

// --- clone_page ---

type clonePageRequest struct {
	OwnerID string `json:"owner_id"`
	URL     string `json:"url"`
}

func (s *Service) registerClonePageTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_clone_page",
		Description: "Fetch a URL and create a mutable HTML clone of it.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Owner of the new clone"},
			"url":      map[string]any{"type": "string", "description": "Page to clone (http or https)"},
		}, []string{"owner_id", "url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*clonePageRequest)
		return s.Clone(ctx, rr.OwnerID, rr.URL)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[clonePageRequest])
}

// --- inject_pixel ---

type injectPixelRequest struct {
	OwnerID string `json:"owner_id"`
	CloneID string `json:"clone_id"`
	PixelID string `json:"pixel_id"`
}

func (s *Service) registerInjectPixelTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_inject_pixel",
		Description: "Install an analytics pixel (15-digit id) into a clone. Idempotent for the same pixel id.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Clone owner"},
			"clone_id": map[string]any{"type": "string", "description": "Clone to mutate"},
			"pixel_id": map[string]any{"type": "string", "description": "15-digit pixel identifier"},
		}, []string{"owner_id", "clone_id", "pixel_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*injectPixelRequest)
		if err := s.InjectPixel(ctx, rr.OwnerID, rr.CloneID, rr.PixelID); err != nil {
			return nil, err
		}
		return s.Get(ctx, rr.OwnerID, rr.CloneID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[injectPixelRequest])
}

// --- add_script ---

type addScriptRequest struct {
	OwnerID  string `json:"owner_id"`
	CloneID  string `json:"clone_id"`
	Content  string `json:"content"`
	Location string `json:"location"`
}

func (s *Service) registerAddScriptTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_add_script",
		Description: "Insert markup verbatim into a clone's head or body and track it for later removal.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Clone owner"},
			"clone_id": map[string]any{"type": "string", "description": "Clone to mutate"},
			"content":  map[string]any{"type": "string", "description": "Markup to insert, stored exactly as given"},
			"location": map[string]any{"type": "string", "enum": []any{"head", "body"}, "description": "Insertion container"},
		}, []string{"owner_id", "clone_id", "content", "location"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*addScriptRequest)
		return s.AddScript(ctx, rr.OwnerID, rr.CloneID, rr.Content, rr.Location)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[addScriptRequest])
}

// --- list_links ---

type listLinksRequest struct {
	OwnerID string `json:"owner_id"`
	CloneID string `json:"clone_id"`
}

func (s *Service) registerListLinksTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_list_links",
		Description: "Enumerate a clone's anchors in document order. The index of each entry addresses it for rewriting.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Clone owner"},
			"clone_id": map[string]any{"type": "string", "description": "Clone to inspect"},
		}, []string{"owner_id", "clone_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*listLinksRequest)
		return s.ListLinks(ctx, rr.OwnerID, rr.CloneID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[listLinksRequest])
}

// --- rewrite_link ---

type rewriteLinkRequest struct {
	OwnerID string `json:"owner_id"`
	CloneID string `json:"clone_id"`
	Index   int    `json:"index"`
	Href    string `json:"href"`
}

func (s *Service) registerRewriteLinkTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "miroir_rewrite_link",
		Description: "Replace the href of the anchor at a positional index, as reported by miroir_list_links.",
		InputSchema: inputSchema(map[string]any{
			"owner_id": map[string]any{"type": "string", "description": "Clone owner"},
			"clone_id": map[string]any{"type": "string", "description": "Clone to mutate"},
			"index":    map[string]any{"type": "integer", "description": "Anchor index from miroir_list_links"},
			"href":     map[string]any{"type": "string", "description": "Replacement href"},
		}, []string{"owner_id", "clone_id", "index", "href"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*rewriteLinkRequest)
		if err := s.RewriteLink(ctx, rr.OwnerID, rr.CloneID, rr.Index, rr.Href); err != nil {
			return nil, err
		}
		return s.ListLinks(ctx, rr.OwnerID, rr.CloneID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeArgs[rewriteLinkRequest])
}

func decodeArgs[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var rr T
	if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &rr}, nil
}
