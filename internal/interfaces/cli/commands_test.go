package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ffengine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ffengine/pkg/errors"
)

type CommandsTestSuite struct {
	suite.Suite
	configPath string
	systemPath string
}

func (s *CommandsTestSuite) SetupTest() {
	dir := filepath.Join(s.T().TempDir(), "snapshots")
	s.configPath = writeFile(s.T(), "ffengine.yaml", fmt.Sprintf(`
log:
  level: error
storage:
  backend: badger
  badger:
    dir: %q
`, dir))
	s.systemPath = writeFile(s.T(), "system.yaml", ionPairYAML)
}

func (s *CommandsTestSuite) run(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", s.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CommandsTestSuite) TestEnergy_JSON() {
	out, err := s.run("-o", "json", "energy", s.systemPath)
	s.Require().NoError(err)

	var report EnergyReport
	s.Require().NoError(json.Unmarshal([]byte(out), &report))
	s.Equal("default", report.Session)
	s.Equal("total(lambda)", report.TotalFn)
	s.InDelta(0.5*coulomb, report.Total, 1e-9)
	s.Len(report.Components, 2)
}

func (s *CommandsTestSuite) TestEnergy_TextAndTable() {
	out, err := s.run("energy", s.systemPath)
	s.Require().NoError(err)
	s.Contains(out, "total (total(lambda)):")
	s.Contains(out, "FF 1 (ions) coul")

	out, err = s.run("-o", "table", "energy", s.systemPath)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(out, "FUNCTION"))
	s.Contains(out, "E^{FF:1}_{coul}")
}

func (s *CommandsTestSuite) TestEnergy_Errors() {
	_, err := s.run("energy")
	s.Error(err)

	_, err = s.run("energy", filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.True(errors.IsCode(err, errors.CodeInvalidParam))

	_, err = s.run("-o", "xml", "energy", s.systemPath)
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
}

func (s *CommandsTestSuite) TestValidate() {
	out, err := s.run("validate", s.systemPath)
	s.Require().NoError(err)
	s.Contains(out, "1 forcefields, 2 molecules, 2 expressions, total total(lambda), consistent=true")

	bad := writeFile(s.T(), "bad.yaml", `
forcefields: [{id: 1}]
expressions: [{name: e, terms: [{forcefield: 3, component: coul}]}]`)
	_, err = s.run("validate", bad)
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
}

func (s *CommandsTestSuite) TestSnapshotLifecycle() {
	out, err := s.run("snapshot", "save", "pair", s.systemPath)
	s.Require().NoError(err)
	s.Contains(out, "snapshot pair saved")

	_, err = s.run("energy", "--session", "extra", "--save", s.systemPath)
	s.Require().NoError(err)

	out, err = s.run("-o", "json", "snapshot", "list")
	s.Require().NoError(err)
	var list SnapshotList
	s.Require().NoError(json.Unmarshal([]byte(out), &list))
	s.Equal([]string{"extra", "pair"}, list.Keys)

	out, err = s.run("-o", "json", "snapshot", "restore", "pair")
	s.Require().NoError(err)
	var report EnergyReport
	s.Require().NoError(json.Unmarshal([]byte(out), &report))
	s.Equal("pair", report.Session)
	s.InDelta(0.5*coulomb, report.Total, 1e-9)

	_, err = s.run("snapshot", "delete", "pair")
	s.Require().NoError(err)
	out, err = s.run("snapshot", "list")
	s.Require().NoError(err)
	s.Equal("extra\n", out)

	_, err = s.run("snapshot", "restore", "pair")
	s.True(errors.IsCode(err, errors.CodeNotFound))
}

func (s *CommandsTestSuite) TestSnapshot_NoStore() {
	s.configPath = writeFile(s.T(), "nostore.yaml", "log:\n  level: error\n")
	_, err := s.run("snapshot", "list")
	s.True(errors.IsCode(err, errors.CodeStorage))
}

func (s *CommandsTestSuite) TestVersion() {
	out, err := s.run("-o", "json", "version")
	s.Require().NoError(err)
	var info BuildInfo
	s.Require().NoError(json.Unmarshal([]byte(out), &info))
	s.Equal(Version, info.Version)
}

func (s *CommandsTestSuite) TestInvalidConfig() {
	s.configPath = writeFile(s.T(), "broken.yaml", "storage:\n  backend: tape\n")
	_, err := s.run("version")
	s.Error(err)
}

func TestCommandsTestSuite(t *testing.T) {
	suite.Run(t, new(CommandsTestSuite))
}

func TestTailHandler_StopsAfterMax(t *testing.T) {
	cmd := NewEventsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := tailHandler(cmd, 2, cancel)

	env := &kafka.EventEnvelope{Session: "s1", SchemaVersion: "v1"}
	require.NoError(t, h(ctx, env))
	assert.NoError(t, ctx.Err())
	require.NoError(t, h(ctx, env))
	assert.Error(t, ctx.Err())
	assert.Equal(t, 2, strings.Count(out.String(), `"session":"s1"`))
}

//Personal.AI order the ending
