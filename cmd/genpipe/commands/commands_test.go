package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/targets/markdown"
	"github.com/teranos/genpipe/targets/typescript"
	"github.com/teranos/genpipe/version"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestTargetsCmd_JSON(t *testing.T) {
	out := execute(t, TargetsCmd, "--json")

	var entries []struct {
		Name     string `json:"name"`
		Requires string `json:"requires"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, markdown.Name, entries[0].Name)
	assert.Equal(t, typescript.Name, entries[1].Name)
	assert.NotEmpty(t, entries[1].Requires)
}

func TestVersionCmd_JSON(t *testing.T) {
	out := execute(t, VersionCmd, "--json")

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Get().GoVersion, info.GoVersion)
}

func TestShowConfig_NeverPrintsCredentials(t *testing.T) {
	cfg := am.Default()
	cfg.Output.S3.Endpoint = "minio.local:9000"
	cfg.Output.S3.AccessKey = "AKIAEXAMPLE"
	cfg.Output.S3.SecretKey = "s3cr3t-value"

	for _, format := range []string{"toml", "json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)

			require.NoError(t, showConfig(cmd, cfg, format))
			assert.Contains(t, out.String(), "minio.local:9000")
			assert.NotContains(t, out.String(), "AKIAEXAMPLE")
			assert.NotContains(t, out.String(), "s3cr3t-value")
		})
	}
}

func TestShowConfig_UnknownFormat(t *testing.T) {
	err := showConfig(&cobra.Command{}, am.Default(), "ini")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestPrintValue(t *testing.T) {
	v := viper.New()
	am.SetDefaults(v)
	v.Set("output.s3.secret_key", "s3cr3t-value")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printValue(cmd, v, "output.dir"))
	assert.Equal(t, am.Default().Output.Dir+"\n", out.String())

	err := printValue(cmd, v, "output.nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out.Reset()
	err = printValue(cmd, v, "Output.S3.Secret_Key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential")
	assert.NotContains(t, out.String(), "s3cr3t-value")
}

func TestRegistry_Builtins(t *testing.T) {
	reg, err := newRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{markdown.Name, typescript.Name}, reg.Names())
}
