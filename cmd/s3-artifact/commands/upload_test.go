package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	cmd := Upload()

	require.NotNil(t, cmd)
	assert.Equal(t, "upload", cmd.Use)
	assert.Equal(t, "Archive files and upload them to a bucket", cmd.Short)
	assert.NotNil(t, cmd.RunE)
}

func TestUpload_Flags(t *testing.T) {
	cmd := Upload()

	tests := []struct {
		name     string
		defValue string
		required bool
	}{
		{name: "config-file", defValue: "", required: true},
		{name: "bucket", defValue: "", required: true},
		{name: "object", defValue: "", required: false},
		{name: "files", defValue: "[]", required: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defValue, flag.DefValue)
			_, required := flag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
			assert.Equal(t, tt.required, required)
		})
	}
}

func TestUpload_FilesAreCommaSeparated(t *testing.T) {
	cmd := Upload()
	require.NoError(t, cmd.Flags().Parse([]string{"--files", "a.txt,dir/,*.log", "--files", "b"}))

	assert.Contains(t, cmd.Flags().Lookup("files").Usage, "end a directory with /")

	files, err := cmd.Flags().GetStringSlice("files")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/", "*.log", "b"}, files)
}
