package nativehost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamzifei/bookmark-is-learned/internal/llm"
)

// LocalModel describes the OpenAI-compatible server behind call_local_model.
type LocalModel struct {
	URL    string
	Model  string
	APIKey string
}

// Handler answers helper requests. One process handles one request.
type Handler struct {
	Home       string
	LocalModel LocalModel
	Gateway    *llm.Gateway
	PickFolder func(ctx context.Context) Response
}

// NewHandler returns a handler rooted at the current user's home directory.
func NewHandler(local LocalModel) (*Handler, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &Handler{
		Home:       home,
		LocalModel: local,
		Gateway:    llm.NewGateway(),
		PickFolder: pickFolder,
	}, nil
}

// Serve reads a single request from r and writes the reply to w. A missing
// or oversized request is dropped without a reply.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var req Request
	if err := ReadMessage(r, &req); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ErrMessageTooLarge) {
			slog.Debug("no request to handle", "error", err)
			return nil
		}
		return err
	}

	return WriteMessage(w, h.Handle(ctx, req))
}

func (h *Handler) Handle(ctx context.Context, req Request) Response {
	slog.Debug("handling request", "action", req.Action)

	switch req.Action {
	case ActionPing:
		return Response{Success: true, Version: Version}
	case ActionPickFolder:
		if h.PickFolder == nil {
			return failure("unsupported")
		}
		return h.PickFolder(ctx)
	case ActionWriteFile:
		if req.Path == "" {
			return failure("missing path")
		}
		return h.writeFile(req.Path, req.Content)
	case ActionCallLocalModel:
		return h.callLocalModel(ctx, req)
	default:
		return failure("unknown action: " + req.Action)
	}
}

func (h *Handler) writeFile(path, content string) Response {
	resolved, err := ValidatePath(path, h.Home)
	if err != nil {
		slog.Warn("rejected write", "path", path, "error", err)
		return failure(err.Error())
	}

	final, err := WriteUnique(resolved, []byte(content))
	if err != nil {
		slog.Warn("write failed", "path", resolved, "error", err)
		return failure(err.Error())
	}

	slog.Info("wrote file", "path", final)
	return Response{Success: true, Path: final, Name: filepath.Base(final)}
}

func (h *Handler) callLocalModel(ctx context.Context, req Request) Response {
	if strings.TrimSpace(h.LocalModel.URL) == "" {
		return failure("local model not configured")
	}
	if h.Gateway == nil {
		h.Gateway = llm.NewGateway()
	}

	endpoint, err := llm.ResolveEndpoint("openai", h.LocalModel.URL)
	if err != nil {
		return failure(err.Error())
	}

	model := req.Model
	if model == "" || model == llm.Providers["local"].Model {
		model = h.LocalModel.Model
	}

	text, err := h.Gateway.Call(ctx, llm.CallRequest{
		ProviderID: "openai",
		APIKey:     h.LocalModel.APIKey,
		Endpoint:   endpoint,
		Model:      model,
		Prompt:     llm.Prompt{System: req.System, User: req.User, MaxOutputTokens: req.MaxTokens},
	})
	if err != nil {
		return failure(err.Error())
	}
	return Response{Success: true, Text: text}
}
