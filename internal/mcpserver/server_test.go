package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"intakectl/internal/config"
	"intakectl/internal/coverage"
	"intakectl/internal/engine"
	"intakectl/internal/normalizer"
	"intakectl/internal/taxonomy"
)

type mockManager struct {
	mock.Mock
}

func (m *mockManager) GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error) {
	args := m.Called(ctx, fixturePath)
	event, _ := args.Get(0).(map[string]interface{})
	return event, args.Error(1)
}

func (m *mockManager) GetCoverage(ctx context.Context, module, format string) (coverage.Report, error) {
	args := m.Called(ctx, module, format)
	return args.Get(0).(coverage.Report), args.Error(1)
}

func (m *mockManager) GetTaxonomy(ctx context.Context, module, format string) (taxonomy.Report, error) {
	args := m.Called(ctx, module, format)
	return args.Get(0).(taxonomy.Report), args.Error(1)
}

const fixtureJSON = `{"input": {"message": "hello"}, "expected": {"message": "hello", "event": {"kind": "event"}}}`

func newTestServer(t *testing.T, m *mockManager) (*Server, config.IntakectlConfig) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.IntakesRoot = t.TempDir()

	for name, content := range map[string]string{
		"acme/fw/ingest/parser.yml": "name: fw\n",
		"acme/fw/tests/hello.json":  fixtureJSON,
	} {
		full := filepath.Join(cfg.IntakesRoot, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return New(cfg, m, normalizer.New(normalizer.DefaultConfig("test")), "test"), cfg
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func parsedHello() map[string]interface{} {
	return map[string]interface{}{
		"message": "hello",
		"event":   map[string]interface{}{"kind": "event", "id": "00000000-0000-0000-0000-000000000000"},
		"sekoiaio": map[string]interface{}{"intake": map[string]interface{}{
			"parsing_status": "success",
			"dialect":        "test",
			"dialect_uuid":   "00000000-0000-0000-0000-000000000000",
		}},
	}
}

func TestMCPServer_RegistersTools(t *testing.T) {
	s, _ := newTestServer(t, &mockManager{})
	assert.NotNil(t, s.MCPServer())
}

func TestHandleListFormats(t *testing.T) {
	s, _ := newTestServer(t, &mockManager{})

	result, err := s.handleListFormats(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "acme/fw/tests/hello.json")

	result, err = s.handleListFormats(context.Background(), callRequest(map[string]interface{}{"module": "other"}))
	require.NoError(t, err)
	assert.Equal(t, "No formats found", resultText(t, result))
}

func TestHandleVerifyFixture(t *testing.T) {
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, "acme/fw/tests/hello.json").Return(parsedHello(), nil)
	s, _ := newTestServer(t, m)

	result, err := s.handleVerifyFixture(context.Background(), callRequest(map[string]interface{}{"path": "acme/fw/tests/hello.json"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	assert.Equal(t, true, decoded["passed"])
	assert.Equal(t, false, decoded["fixed"])
}

func TestHandleVerifyFixture_Errors(t *testing.T) {
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, mock.Anything).Return(nil, engine.ErrEngineFailed)
	s, _ := newTestServer(t, m)

	result, err := s.handleVerifyFixture(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "path parameter is required", resultText(t, result))

	result, err = s.handleVerifyFixture(context.Background(), callRequest(map[string]interface{}{"path": "acme/fw/tests/hello.json"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "engine failed")
}

func TestHandleVerifyFixture_RejectsPathsOutsideRoot(t *testing.T) {
	m := &mockManager{}
	s, cfg := newTestServer(t, m)

	for _, path := range []string{"../outside.json", "acme/../../outside.json", filepath.Join(filepath.Dir(cfg.IntakesRoot), "outside.json")} {
		result, err := s.handleVerifyFixture(context.Background(), callRequest(map[string]interface{}{
			"path": path,
			"fix":  true,
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError, path)
		assert.Contains(t, resultText(t, result), "outside the intakes root", path)
	}
	m.AssertNotCalled(t, "GetParsedMessage", mock.Anything, mock.Anything)
}

func TestHandleVerifyFixture_Fix(t *testing.T) {
	parsed := parsedHello()
	parsed["event"].(map[string]interface{})["kind"] = "alert"
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, mock.Anything).Return(parsed, nil)
	s, cfg := newTestServer(t, m)

	result, err := s.handleVerifyFixture(context.Background(), callRequest(map[string]interface{}{
		"path": "acme/fw/tests/hello.json",
		"fix":  true,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"fixed": true`)

	data, err := os.ReadFile(filepath.Join(cfg.IntakesRoot, "acme", "fw", "tests", "hello.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alert"`)
}

func TestHandleCoverage(t *testing.T) {
	m := &mockManager{}
	m.On("GetCoverage", mock.Anything, "acme", "fw").Return(coverage.Report{Percent: 60, Missing: []string{"fw:main:0"}}, nil)
	s, _ := newTestServer(t, m)

	result, err := s.handleCoverage(context.Background(), callRequest(map[string]interface{}{"module": "acme", "format": "fw"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Coverage: 60")
	assert.Contains(t, text, "fw:main:0")
	assert.Contains(t, text, "FAILED (minimum 75%)")

	result, err = s.handleCoverage(context.Background(), callRequest(map[string]interface{}{"module": "acme"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleTaxonomy(t *testing.T) {
	m := &mockManager{}
	m.On("GetTaxonomy", mock.Anything, "acme", "fw").Return(taxonomy.Report{Missing: []string{"x.y"}}, nil)
	s, cfg := newTestServer(t, m)

	result, err := s.handleTaxonomy(context.Background(), callRequest(map[string]interface{}{
		"module":      "acme",
		"format":      "fw",
		"fix_missing": true,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "FAILED: 1 missing fields")
	assert.Contains(t, taxonomy.Load(cfg.FieldsPath("acme", "fw")), "x.y")
}

func TestHandleRunChecks(t *testing.T) {
	m := &mockManager{}
	m.On("GetCoverage", mock.Anything, "acme", "fw").Return(coverage.Report{Percent: 80}, nil)
	s, _ := newTestServer(t, m)

	result, err := s.handleRunChecks(context.Background(), callRequest(map[string]interface{}{
		"formats": "acme/fw",
		"kinds":   "coverage",
	}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	assert.Equal(t, float64(1), decoded["passed"])

	result, err = s.handleRunChecks(context.Background(), callRequest(map[string]interface{}{"kinds": "bogus"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b/c"}, splitList(" a , ,b/c"))
	assert.Nil(t, splitList(""))
}
