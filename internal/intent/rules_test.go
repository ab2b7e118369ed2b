package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskhand/internal/normalize"
)

// TestRuleCoverage walks one phrasing for every deterministic rule
// family and checks kind plus extracted slots.
func TestRuleCoverage(t *testing.T) {
	cases := []struct {
		input  string
		kind   Kind
		params map[string]string
	}{
		{"go to documents", KindNavigate, map[string]string{"location": "/home/u/Documents"}},
		{"go back", KindBack, nil},
		{"where am i", KindWhere, nil},

		{"list files", KindListFiles, nil},
		{"show folders", KindListFolders, nil},
		{"list everything", KindListAll, nil},
		{"search for budget everywhere", KindSearch, map[string]string{"query": "budget"}},

		{"create file notes.txt", KindCreateFile, map[string]string{"name": "notes.txt"}},
		{"create folder invoices", KindCreateFolder, map[string]string{"name": "invoices"}},
		{"delete file old.txt", KindDeleteFile, map[string]string{"name": "old.txt"}},
		{"delete folder temp", KindDeleteFolder, map[string]string{"name": "temp"}},
		{"move report.txt to documents", KindMoveFile, map[string]string{"source": "report.txt"}},
		{"rename draft.txt to final.txt", KindRenameFile, map[string]string{"source": "draft.txt", "destination": "final.txt"}},
		{"copy a.txt to documents", KindCopyFile, map[string]string{"source": "a.txt"}},
		{"compress folder project", KindCompress, map[string]string{"name": "project"}},
		{"unzip archive.zip", KindExtract, map[string]string{"name": "archive.zip"}},

		{"take a screenshot", KindScreenshot, nil},
		{"kill process firefox", KindKillProcess, map[string]string{"process": "firefox"}},
		{"shutdown in 5", KindShutdown, map[string]string{"delay": "5"}},
		{"restart", KindRestart, nil},
		{"cancel shutdown", KindCancelShutdown, nil},
		{"check storage", KindCheckStorage, nil},
		{"system info", KindSystemInfo, nil},

		{"what was i doing", KindWhatDoing, nil},
		{"continue where i left off", KindContinueWork, nil},
		{"find files related to thesis", KindFindProject, map[string]string{"project": "thesis"}},

		{"undo", KindUndoLast, nil},
		{"undo last 30 minutes", KindUndoSince, map[string]string{"n": "30", "unit": "minutes"}},
		{"show undo timeline", KindUndoTimeline, nil},

		{"what can you do", KindCapabilities, nil},
	}

	c := NewClassifier(nil)
	n := normalize.New(Vocabulary(), nil)
	sctx := &fakeContext{
		location: "/home/u",
		aliases:  map[string]string{"documents": "/home/u/Documents"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			in, err := c.Classify(context.Background(), tc.input, n.Normalize(tc.input), sctx)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, in.Kind)
			for key, want := range tc.params {
				assert.Equal(t, want, in.Param(key), "param %s", key)
			}
		})
	}
}

func TestAllExcludesUnknown(t *testing.T) {
	kinds := All()
	require.NotEmpty(t, kinds)
	for _, k := range kinds {
		assert.NotEqual(t, KindUnknown, k)
	}
}
