package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/analysis"
	"github.com/mvp-joe/noir-analyzer/internal/config"
	"github.com/mvp-joe/noir-analyzer/internal/report"
)

// LintToolName is the name the lint tool is registered under.
const LintToolName = "noir_lint"

// AddNoirLintTool registers the noir_lint tool with an MCP server.
func AddNoirLintTool(s *server.MCPServer, logger *zap.Logger) {
	tool := mcp.NewTool(
		LintToolName,
		mcp.WithDescription("Find unused functions in a Noir (Nargo) project. Returns a JSON report with one entry per package: diagnostics carry the function name, its fully qualified path and the file, line and column of its definition. Public functions, `main` and functions marked #[test], #[export], #[fold] or #[recursive] are treated as used."),
		mcp.WithString("manifest_path",
			mcp.Required(),
			mcp.Description("Path to Nargo.toml, or the directory holding it (package or workspace)")),
		mcp.WithArray("entry_points",
			mcp.Description("Function names or crate:: paths to treat as entry points (default: [\"main\"])")),
		mcp.WithString("package",
			mcp.Description("Only lint this workspace member")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createNoirLintHandler(logger))
}

// createNoirLintHandler creates the handler function for the noir_lint tool.
// Problems with the request or the project become tool errors; parse failures
// inside a package are reported in that package's errors array.
func createNoirLintHandler(logger *zap.Logger) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		manifestPath, err := parseStringArg(argsMap, "manifest_path", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pkg, err := parseStringArg(argsMap, "package", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entryPoints := parseArrayArg(argsMap, "entry_points")

		runner := analysis.New(analysis.Options{
			ManifestPath: manifestPath,
			Package:      pkg,
			Logger:       logger,
			Overrides: func(cfg *config.Config) {
				if entryPoints != nil {
					cfg.Lint.EntryPoints = entryPoints
				}
			},
		})
		defer runner.Close()

		out, err := runner.Run(ctx)
		if out == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			logger.Warn("lint finished with errors", zap.String("manifest", manifestPath), zap.Error(err))
		}

		var buf bytes.Buffer
		reporter, err := report.New(&buf, report.Options{
			Format: report.FormatJSON,
			Color:  report.ColorNever,
			Ignore: out.Config.Paths.Ignore,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reporter: %w", err)
		}
		if err := reporter.Write(out.Report); err != nil {
			return nil, fmt.Errorf("failed to render report: %w", err)
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}
