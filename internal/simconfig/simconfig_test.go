package simconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settings = Settings{
	CentroidFile: "/out/centroids.csv",
	NumHosts: 20,
	Duration: 86399,
	MaxX: 267106.5,
	MaxY: 236785,
	ExternalMovementFile: "/out/0.plt",
	MessageFreq: 10,
	SocialInterests: 25,
	InterestSpace: 200,
	SecondsToZero: 300,
	LeafDirectory: "/out",
}

func TestRender(t *testing.T) {
	out, err := Render("Scenario.nrofHostGroups = 1\n"+
		"Group.nrofHosts = {{num_hosts}}\n"+
		"Events1.hosts = 0,{{max_host_addr}}\n"+
		"Scenario.endTime = {{duration}}\n"+
		"MovementModel.worldSize = {{max_x}}, {{max_y}}\n"+
		"ExternalMovement.file = {{external_movement_file}}\n", settings)
	require.NoError(t, err)
	assert.Equal(t, "Scenario.nrofHostGroups = 1\n"+
		"Group.nrofHosts = 20\n"+
		"Events1.hosts = 0,19\n"+
		"Scenario.endTime = 86399\n"+
		"MovementModel.worldSize = 267106.5, 236785\n"+
		"ExternalMovement.file = /out/0.plt\n", out)
}

func TestRenderBadTemplate(t *testing.T) {
	_, err := Render("{{#open}}", settings)
	assert.Error(t, err)
}

func TestRenderFileDefaultTemplate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "batch_settings.txt")
	require.NoError(t, RenderFile("../../res/templates/chitchat_MessageStatsReport.mustache", out, settings))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Group.nrofHosts = 20")
	assert.Contains(t, text, "ExternalMovement.file = /out/0.plt")
	assert.Contains(t, text, "/out/centroids.csv")
	assert.NotContains(t, text, "{{")
}

func TestRenderFileMissingTemplate(t *testing.T) {
	err := RenderFile(filepath.Join(t.TempDir(), "missing.mustache"), filepath.Join(t.TempDir(), "out"), settings)
	assert.Error(t, err)
}
