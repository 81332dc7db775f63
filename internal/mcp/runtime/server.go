// Package runtime hosts the tool server: it registers the single exposed
// tool, validates incoming calls, dispatches operations to their handlers,
// and shapes errors for the wire.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"surface/internal/core/config"
	cerrors "surface/internal/core/errors"
	"surface/internal/core/ports"
	"surface/internal/mcp/contracts"
	"surface/internal/mcp/registry"
	"surface/internal/mcp/tools/diffs"
	"surface/internal/mcp/tools/packages"
	"surface/internal/mcp/tools/system"
	"surface/internal/mcp/tools/types"
	"surface/internal/mcp/transport"
	"surface/internal/mcp/validate"
	"surface/internal/shared/observability"
)

type Server struct {
	cfg       *config.Config
	svc       ports.Inspector
	logger    *slog.Logger
	registry  *registry.Registry
	transport transport.Adapter
	allowlist OperationAllowlist
	toolName  string

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, svc ports.Inspector, adapter transport.Adapter, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("inspector service is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:       cfg,
		svc:       svc,
		logger:    logger,
		registry:  registry.New(),
		transport: adapter,
		allowlist: BuildOperationAllowlist(cfg),
		toolName:  contracts.ToolNameSurface,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("tool server active", "transport", s.cfg.MCP.Transport, "tool", s.toolName)

	if s.cfg.MCP.ContractPath != "" {
		ops, err := VerifyContract(s.cfg.MCP.ContractPath, s.cfg.MCP.Operations)
		if err != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return err
		}
		s.logger.Info("contract verified", "path", s.cfg.MCP.ContractPath, "operations", len(ops))
	}

	if err := s.registerDefaultTool(); err != nil {
		return err
	}

	err := s.transport.Start(ctx, s.handleToolCall)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return err
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.transport.Stop()
}

func (s *Server) registerDefaultTool() error {
	if _, ok := s.registry.HandlerFor(s.toolName); ok {
		return nil
	}
	return s.registry.Register(s.toolName, func(ctx context.Context, input any) (any, error) {
		raw, ok := input.(map[string]any)
		if !ok {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool args must be an object"}
		}
		return s.dispatchOperation(ctx, raw)
	})
}

func (s *Server) handleToolCall(ctx context.Context, tool string, raw map[string]any) (any, error) {
	if strings.TrimSpace(tool) == "" {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool is required"}
	}
	if !strings.EqualFold(tool, s.toolName) {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}

	handler, ok := s.registry.HandlerFor(s.toolName)
	if !ok {
		return nil, contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "tool handler not registered"}
	}

	if timeout := s.cfg.MCP.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := handler(ctx, raw)
	if err != nil {
		return nil, toToolError(err)
	}
	return out, nil
}

func (s *Server) dispatchOperation(ctx context.Context, raw map[string]any) (any, error) {
	operation, input, err := validate.ParseToolArgs(s.toolName, raw)
	if err != nil {
		observability.ToolRequestsTotal.WithLabelValues("invalid", "error").Inc()
		return nil, err
	}
	if !s.allowlist.Allows(operation) {
		observability.ToolRequestsTotal.WithLabelValues(string(operation), "denied").Inc()
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("operation not allowed: %s", operation)}
	}

	out, err := s.invoke(ctx, operation, input)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Warn("operation failed", "operation", operation, "error", err)
	}
	observability.ToolRequestsTotal.WithLabelValues(string(operation), outcome).Inc()
	if err != nil {
		return nil, err
	}
	return wrapToolResult(operation, out), nil
}

func (s *Server) invoke(ctx context.Context, operation contracts.OperationID, input any) (any, error) {
	maxItems := s.cfg.MCP.MaxItems
	switch operation {
	case contracts.OperationPackagesList:
		return packages.HandleList(ctx, s.svc, input.(contracts.PackagesListInput), maxItems)
	case contracts.OperationTypesList:
		return types.HandleList(ctx, s.svc, input.(contracts.TypesListInput), maxItems)
	case contracts.OperationTypesGet:
		return types.HandleGet(ctx, s.svc, input.(contracts.TypesGetInput))
	case contracts.OperationAPICompare:
		return diffs.HandleCompare(ctx, s.svc, input.(contracts.APICompareInput), maxItems)
	case contracts.OperationHistoryList:
		return diffs.HandleHistoryList(ctx, s.svc, input.(contracts.HistoryListInput), maxItems)
	case contracts.OperationHistoryGet:
		return diffs.HandleHistoryGet(ctx, s.svc, input.(contracts.HistoryGetInput))
	case contracts.OperationSystemStatus:
		return system.HandleStatus(ctx, s.svc)
	default:
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operation)}
	}
}

func wrapToolResult(operation contracts.OperationID, payload any) any {
	return map[string]any{
		"version":   contracts.ContractVersion,
		"operation": operation,
		"result":    payload,
	}
}

// toToolError maps a domain error onto the wire error envelope, keeping the
// structured context as details.
func toToolError(err error) error {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request timed out"}
	}

	code := contracts.ErrorInternal
	switch cerrors.CodeOf(err) {
	case cerrors.CodeNotFound:
		code = contracts.ErrorNotFound
	case cerrors.CodeInvalidFilter:
		code = contracts.ErrorInvalidArgument
	case cerrors.CodeNotSupported:
		code = contracts.ErrorUnavailable
	}

	out := contracts.ToolError{Code: code, Message: err.Error()}
	var de *cerrors.DomainError
	if errors.As(err, &de) && len(de.Context) > 0 {
		out.Message = de.Message
		out.Details = de.Context
	}
	return out
}
