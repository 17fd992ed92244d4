package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"

	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/form"
	"userdir/internal/directory/list"
	"userdir/internal/directory/validation"
	"userdir/internal/platform/config"
	platformmetrics "userdir/internal/platform/metrics"
	"userdir/internal/userstore/handler"
	"userdir/internal/userstore/service"
	"userdir/internal/userstore/store/memory"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

type CLISuite struct {
	suite.Suite
	api string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.T().Setenv(config.EnvConfigFile, "")
	svc, err := service.New(memory.New(), dateformat.New(dateformat.WireISO))
	s.Require().NoError(err)

	r := chi.NewRouter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r.Route("/api/v1", func(api chi.Router) {
		handler.New(svc, logger, platformmetrics.New(prometheus.NewRegistry())).Register(api)
	})
	srv := httptest.NewServer(r)
	s.T().Cleanup(srv.Close)
	s.api = srv.URL + "/api/v1"
}

func (s *CLISuite) exec(stdin string, args ...string) result {
	return run(s.T(), stdin, append([]string{"-api", s.api}, args...)...)
}

var janeFlags = []string{
	"-name", "Jane Smith",
	"-mobile", "1234567890",
	"-email", "jane@example.com",
	"-dob", "15/06/1990",
	"-addr1", "1 Main St",
	"-city", "Springfield",
	"-pin", "123456",
}

// create registers Jane and returns the new id.
func (s *CLISuite) create() string {
	res := s.exec("", append([]string{"create"}, janeFlags...)...)
	s.Require().Equal(exitOK, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	return strings.Fields(lines[len(lines)-1])[0]
}

func (s *CLISuite) TestCreateAndList() {
	res := s.exec("", append([]string{"create"}, janeFlags...)...)
	s.Equal(exitOK, res.code, res.stderr)
	s.Contains(res.stdout, "[success] "+form.MsgCreated)

	res = s.exec("", "list")
	s.Equal(exitOK, res.code)
	s.Contains(res.stdout, "JS")
	s.Contains(res.stdout, "Jane Smith")
	s.Contains(res.stdout, "15/06/1990")
	s.Contains(res.stdout, "1 Main St, Springfield - 123456")
	s.Contains(res.stdout, "Showing 1 of 1 users")

	res = s.exec("", "list", "-q", "nobody")
	s.Contains(res.stdout, list.MsgNoMatches)
	s.Contains(res.stdout, "Showing 0 of 1 users")

	res = s.exec("", "list", "-q", "JANE@")
	s.Contains(res.stdout, "Showing 1 of 1 users")
}

func (s *CLISuite) TestTraceExporterWritesSpansToStderr() {
	prev := otel.GetTracerProvider()
	s.T().Cleanup(func() { otel.SetTracerProvider(prev) })

	res := s.exec("", "-trace", "stdout", "list")
	s.Equal(exitOK, res.code, res.stderr)
	s.Contains(res.stderr, `"Name":"userstore.list"`)
	s.NotContains(res.stdout, "userstore.list")
}

func (s *CLISuite) TestListEmpty() {
	res := s.exec("", "list")
	s.Equal(exitOK, res.code)
	s.Contains(res.stdout, list.MsgNoUsers)
}

func (s *CLISuite) TestCreateRejectsInvalidInput() {
	res := s.exec("", "create", "-name", "J", "-pin", "12")
	s.Equal(exitFail, res.code)
	s.Contains(res.stderr, "fullName: "+validation.MsgFullNameTooShort)
	s.Contains(res.stderr, "pinCode: "+validation.MsgPinDigits)
	s.Contains(res.stderr, form.MsgFixErrors)

	listed := s.exec("", "list")
	s.Contains(listed.stdout, "Showing 0 of 0 users")
}

func (s *CLISuite) TestCreateDuplicateShowsStoreMessage() {
	s.create()
	res := s.exec("", append([]string{"create"}, janeFlags...)...)
	s.Equal(exitFail, res.code)
	s.Contains(res.stderr, "Error: User with this email already exists")
}

func (s *CLISuite) TestEdit() {
	id := s.create()

	res := s.exec("", "edit", "-id", id, "-city", "Shelbyville")
	s.Equal(exitOK, res.code, res.stderr)
	s.Contains(res.stdout, "[success] "+form.MsgUpdated)
	s.Contains(res.stdout, id)

	res = s.exec("", "list")
	s.Contains(res.stdout, "1 Main St, Shelbyville - 123456")
	s.Contains(res.stdout, "15/06/1990")

	res = s.exec("", "edit", "-id", "nope", "-city", "x")
	s.Equal(exitFail, res.code)
	s.Contains(res.stderr, "User not found: nope")

	res = s.exec("", "edit", "-city", "x")
	s.Equal(exitUsage, res.code)
}

func (s *CLISuite) TestDeleteConfirmation() {
	id := s.create()

	res := s.exec("n\n", "delete", "-id", id)
	s.Equal(exitOK, res.code)
	s.Contains(res.stdout, list.MsgConfirmDelete)
	s.Contains(res.stdout, "Delete cancelled")
	s.Contains(s.exec("", "list").stdout, "Showing 1 of 1 users")

	res = s.exec("y\n", "delete", "-id", id)
	s.Equal(exitOK, res.code, res.stderr)
	s.Contains(res.stdout, "[success] "+list.MsgDeleted)
	s.Contains(s.exec("", "list").stdout, list.MsgNoUsers)
}

func (s *CLISuite) TestDeleteWithoutPrompt() {
	id := s.create()
	res := s.exec("", "delete", "-id", id, "-yes")
	s.Equal(exitOK, res.code, res.stderr)
	s.NotContains(res.stdout, list.MsgConfirmDelete)
}

func (s *CLISuite) TestMetricsTextfile() {
	path := filepath.Join(s.T().TempDir(), "userdir.prom")
	res := s.exec("", "-metrics-file", path, "list")
	s.Equal(exitOK, res.code)

	raw, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(raw), "userdir_remote_requests_total")
}

func TestRun_Usage(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")

	res := run(t, "")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "usage: userdir")

	res = run(t, "", "frobnicate")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, `unknown command "frobnicate"`)

	res = run(t, "", "-date-layout", "julian", "list")
	assert.Equal(t, exitUsage, res.code)
}

func TestRun_Unreachable(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	res := run(t, "", "-api", url+"/api/v1", "list")
	require.Equal(t, exitFail, res.code)
	assert.Contains(t, res.stderr, "Unable to reach the user service")
}
