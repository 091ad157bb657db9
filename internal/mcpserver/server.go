// Package mcpserver exposes the intake checks as MCP tools over stdio, so
// that an assistant can verify fixtures and inspect coverage and taxonomy.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"intakectl/internal/config"
	"intakectl/internal/coverage"
	"intakectl/internal/engine"
	"intakectl/internal/fixture"
	"intakectl/internal/normalizer"
	"intakectl/internal/suite"
	"intakectl/internal/taxonomy"
	"intakectl/pkg/logging"
)

// Server holds what the tool handlers need.
type Server struct {
	cfg        config.IntakectlConfig
	manager    engine.Manager
	normalizer *normalizer.Normalizer
	version    string
}

// New creates a Server.
func New(cfg config.IntakectlConfig, manager engine.Manager, n *normalizer.Normalizer, version string) *Server {
	return &Server{
		cfg:        cfg,
		manager:    manager,
		normalizer: n,
		version:    version,
	}
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"intakectl",
		s.version,
		server.WithToolCapabilities(false),
	)
	mcpServer.AddTool(listFormatsTool(), s.handleListFormats)
	mcpServer.AddTool(verifyFixtureTool(), s.handleVerifyFixture)
	mcpServer.AddTool(coverageTool(), s.handleCoverage)
	mcpServer.AddTool(taxonomyTool(), s.handleTaxonomy)
	mcpServer.AddTool(runChecksTool(), s.handleRunChecks)
	return mcpServer
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	logging.Info("MCPServer", "Serving intake tools on stdio (root %s)", s.cfg.IntakesRoot)
	return server.ServeStdio(s.MCPServer())
}

func listFormatsTool() mcp.Tool {
	return mcp.NewTool("list_formats",
		mcp.WithDescription("List the intake formats and their fixtures"),
		mcp.WithString("module",
			mcp.Description("Only list the formats of this module"),
		),
	)
}

func verifyFixtureTool() mcp.Tool {
	return mcp.NewTool("verify_fixture",
		mcp.WithDescription("Parse a fixture and compare the event with its expectation"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Fixture path relative to the intakes root"),
		),
		mcp.WithBoolean("fix",
			mcp.Description("Rewrite the expectation from the parsed event when it differs"),
			mcp.DefaultBool(false),
		),
	)
}

func coverageTool() mcp.Tool {
	return mcp.NewTool("coverage",
		mcp.WithDescription("Report which parser actions the fixtures of a format do not exercise"),
		mcp.WithString("module", mcp.Required(), mcp.Description("Intake module")),
		mcp.WithString("format", mcp.Required(), mcp.Description("Log format")),
		mcp.WithBoolean("detailed",
			mcp.Description("Explain every uncovered action"),
			mcp.DefaultBool(false),
		),
	)
}

func taxonomyTool() mcp.Tool {
	return mcp.NewTool("taxonomy",
		mcp.WithDescription("Compare the fields a parser emits with the fields its taxonomy declares"),
		mcp.WithString("module", mcp.Required(), mcp.Description("Intake module")),
		mcp.WithString("format", mcp.Required(), mcp.Description("Log format")),
		mcp.WithBoolean("fix_missing",
			mcp.Description("Declare missing fields in fields.yml"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("prune",
			mcp.Description("Remove unused fields from fields.yml"),
			mcp.DefaultBool(false),
		),
	)
}

func runChecksTool() mcp.Tool {
	return mcp.NewTool("run_checks",
		mcp.WithDescription("Run the check suite and return the JSON result"),
		mcp.WithString("formats",
			mcp.Description("Comma-separated module or module/format ids (default: all)"),
		),
		mcp.WithString("kinds",
			mcp.Description("Comma-separated check kinds (default: all)"),
		),
		mcp.WithBoolean("fix_expectations",
			mcp.Description("Rewrite mismatching fixture expectations"),
			mcp.DefaultBool(false),
		),
	)
}

func (s *Server) handleListFormats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formats, err := suite.DiscoverFormats(s.cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to discover formats: %v", err)), nil
	}
	if module := stringArg(request, "module"); module != "" {
		formats = suite.FilterFormats(formats, []string{module})
	}
	if len(formats) == 0 {
		return mcp.NewToolResultText("No formats found"), nil
	}
	return jsonResult(formats)
}

func (s *Server) handleVerifyFixture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required"), nil
	}
	path, err = fixture.RootRelative(s.cfg.IntakesRoot, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := fixture.ModeVerify
	if boolArg(request, "fix") {
		mode = fixture.ModeFix
	}

	outcome, err := fixture.NewVerifier(s.cfg.IntakesRoot, s.manager, s.normalizer, mode).Verify(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Verification failed: %v", err)), nil
	}

	type verifyResult struct {
		Path   string `json:"path"`
		Passed bool   `json:"passed"`
		Fixed  bool   `json:"fixed"`
		Diff   string `json:"diff,omitempty"`
		// Warnings and Errors carry the parsing diagnostics of the event
		Warnings string `json:"warnings,omitempty"`
		Errors   string `json:"errors,omitempty"`
	}
	result := verifyResult{
		Path:   outcome.Path,
		Passed: outcome.Passed,
		Fixed:  outcome.Fixed,
		Diff:   outcome.Diff,
	}
	if warnErr := fixture.CheckWarnings(outcome.Actual); warnErr != nil {
		result.Warnings = warnErr.Error()
	}
	if parseErr := fixture.CheckErrors(outcome.Actual); parseErr != nil {
		result.Errors = parseErr.Error()
	}
	return jsonResult(result)
}

func (s *Server) handleCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, format, errResult := moduleAndFormat(request)
	if errResult != nil {
		return errResult, nil
	}

	report, err := s.manager.GetCoverage(ctx, module, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Coverage failed: %v", err)), nil
	}

	var out bytes.Buffer
	summary := coverage.NewAnalyzer(&out, boolArg(request, "detailed")).
		Analyze(format, report, s.cfg.ParserPath(module, format))
	verdict := "PASSED"
	if !summary.Passed {
		verdict = "FAILED"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s%s (minimum %g%%)\n", out.String(), verdict, coverage.MinimumPercent)), nil
}

func (s *Server) handleTaxonomy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, format, errResult := moduleAndFormat(request)
	if errResult != nil {
		return errResult, nil
	}

	report, err := s.manager.GetTaxonomy(ctx, module, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Taxonomy failed: %v", err)), nil
	}

	var out bytes.Buffer
	reconciler := taxonomy.NewReconciler(&out, boolArg(request, "fix_missing"), boolArg(request, "prune"))
	fieldsPath := s.cfg.FieldsPath(module, format)

	var failures []string
	if err := reconciler.CheckUnused(fieldsPath, report); err != nil {
		failures = append(failures, err.Error())
	}
	if err := reconciler.CheckMissing(fieldsPath, report); err != nil {
		failures = append(failures, err.Error())
	}
	if len(failures) > 0 {
		fmt.Fprintf(&out, "FAILED: %s\n", strings.Join(failures, "; "))
	} else {
		fmt.Fprintf(&out, "PASSED\n")
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (s *Server) handleRunChecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conf := suite.DefaultConfiguration()
	conf.Formats = splitList(stringArg(request, "formats"))
	for _, kind := range splitList(stringArg(request, "kinds")) {
		conf.Kinds = append(conf.Kinds, suite.CheckKind(kind))
	}
	conf.FixExpectations = boolArg(request, "fix_expectations")
	if err := suite.ValidateConfiguration(conf); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	formats, err := suite.DiscoverFormats(s.cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to discover formats: %v", err)), nil
	}

	var out bytes.Buffer
	runner := suite.NewRunner(s.manager, s.normalizer, s.cfg, suite.NewJSONReporter(&out))
	if _, err := runner.Run(ctx, conf, formats); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Checks failed to run: %v", err)), nil
	}
	return mcp.NewToolResultText(out.String()), nil
}

func moduleAndFormat(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	module, err := request.RequireString("module")
	if err != nil {
		return "", "", mcp.NewToolResultError("module parameter is required")
	}
	format, err := request.RequireString("format")
	if err != nil {
		return "", "", mcp.NewToolResultError("format parameter is required")
	}
	return module, format, nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	value, _ := request.GetArguments()[name].(string)
	return value
}

func boolArg(request mcp.CallToolRequest, name string) bool {
	value, _ := request.GetArguments()[name].(bool)
	return value
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
