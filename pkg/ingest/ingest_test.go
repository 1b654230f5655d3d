package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestLoad_Latin1CSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "PRJ", "RePORTER_PRJ_C_FY2020.csv"),
		[]byte("\xef\xbb\xbfAPPLICATION_ID,\"PROJECT_TITLE\"\n1,Caf\xe9\n2,a,b\n3,\n"))

	sources, summaries, err := Load(context.Background(), Options{
		Folder:     dir,
		Subfolders: []string{"PRJ"},
		Encoding:   "latin1",
	}, nil)
	require.NoError(t, err)

	require.Len(t, sources["PRJ"], 1)
	want := tables.New([]string{tables.ApplicationID, "PROJECT_TITLE"},
		[]any{"1", "Café"},
		[]any{"3", nil},
	)
	if diff := cmp.Diff(want, sources["PRJ"][0].Table); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, report.StatusOK, s.Status)
	assert.Equal(t, "PRJ", s.Folder)
	assert.Equal(t, 1, s.FileCount)
	assert.Equal(t, 2, s.TotalRows)
	require.Len(t, s.Files, 1)
	assert.Equal(t, 1, s.Files[0].SkippedLines)
	assert.Len(t, s.Files[0].Fingerprint, 64)
	assert.Equal(t, int64(50), s.Files[0].Bytes)
}

func TestLoad_MissingFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "PRJ", "a.csv"), []byte("A\n1\n"))
	writeFile(t, filepath.Join(dir, "Patents", "notes.txt"), []byte("not a table"))

	sources, summaries, err := Load(context.Background(), Options{
		Folder:     dir,
		Subfolders: []string{"PRJ", "PUBLINK", "Patents"},
	}, nil)
	require.NoError(t, err)

	assert.Len(t, sources, 1)
	assert.Contains(t, sources, "PRJ")
	require.Len(t, summaries, 3)
	assert.Equal(t, report.StatusSkipped, summaries[1].Status)
	assert.Equal(t, report.StatusSkipped, summaries[2].Status)
}

func TestLoad_EmptyFileIsOmitted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "PRJ", "a.csv"), []byte("A,B\n1,2\n"))
	writeFile(t, filepath.Join(dir, "PRJ", "b.csv"), nil)

	sources, summaries, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"PRJ"}}, nil)
	require.NoError(t, err)

	require.Len(t, sources["PRJ"], 1)
	assert.Equal(t, "a", sources["PRJ"][0].Name)
	require.Len(t, summaries[0].Files, 2)
	assert.Equal(t, report.StatusFailed, summaries[0].Files[1].Status)
	assert.Equal(t, 1, summaries[0].FileCount)
}

func TestLoad_Parts(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "PUBLINK")
	writeFile(t, filepath.Join(folder, "links.part2.csv"), []byte("PMID,PROJECT_NUMBER\n3,X2\n"))
	writeFile(t, filepath.Join(folder, "links.part10.csv"), []byte("PMID,PROJECT_NUMBER\n4,X3\n"))
	writeFile(t, filepath.Join(folder, "links.part1.csv"), []byte("PMID,PROJECT_NUMBER\n1,X1\n2,X1\n"))

	sources, summaries, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"PUBLINK"}}, nil)
	require.NoError(t, err)

	require.Len(t, sources["PUBLINK"], 1)
	got := sources["PUBLINK"][0]
	assert.Equal(t, "links", got.Name)
	assert.Equal(t, [][]any{{"1", "X1"}, {"2", "X1"}, {"3", "X2"}, {"4", "X3"}}, got.Table.Rows)
	assert.Equal(t, 3, summaries[0].Files[0].Parts)
}

func TestLoad_JSONLGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Patents", "patents.jsonl.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(`{"PMID": 100, "PROJECT_NUMBER": "X1", "tags": ["a", "b"]}
{"PMID": 200.5, "extra": {"k": 1}}
`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	sources, _, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"Patents"}}, nil)
	require.NoError(t, err)

	want := tables.New([]string{"PMID", "PROJECT_NUMBER", "tags", "extra"},
		[]any{int64(100), "X1", []string{"a", "b"}, nil},
		[]any{200.5, nil, nil, `{"k":1}`},
	)
	if diff := cmp.Diff(want, sources["Patents"][0].Table); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "patents", sources["Patents"][0].Name)
}

func TestLoad_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ClinicalStudies", "studies.xlsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ClinicalTrials.gov ID", "Core Project Number"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"NCT1", "X1"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"NCT2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sources, _, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"ClinicalStudies"}}, nil)
	require.NoError(t, err)

	want := tables.New([]string{tables.ClinicalTrialID, "Core Project Number"},
		[]any{"NCT1", "X1"},
		[]any{"NCT2", nil},
	)
	if diff := cmp.Diff(want, sources["ClinicalStudies"][0].Table); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

// Parallel reads give the same tables, in the same order, as sequential
// reads.
func TestLoad_Parallel(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"e.csv", "a.csv", "c.tsv", "b.csv", "d.csv"} {
		sep := ","
		if filepath.Ext(name) == ".tsv" {
			sep = "\t"
		}
		writeFile(t, filepath.Join(dir, "PRJ", name), []byte("A"+sep+"B\n"+name+sep+"1\n"))
	}

	sequential, _, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"PRJ"}}, nil)
	require.NoError(t, err)
	concurrent, _, err := Load(context.Background(), Options{Folder: dir, Subfolders: []string{"PRJ"}, Parallel: true, Workers: 3}, nil)
	require.NoError(t, err)

	assert.Equal(t, sequential, concurrent)
	require.Len(t, concurrent["PRJ"], 5)
	assert.Equal(t, "a", concurrent["PRJ"][0].Name)
	assert.Equal(t, "c.tsv", concurrent["PRJ"][2].Table.Rows[0][0])
}

func TestLoad_UnknownEncoding(t *testing.T) {
	_, _, err := Load(context.Background(), Options{Folder: t.TempDir(), Encoding: "klingon"}, nil)

	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncoding(t *testing.T) {
	enc, err := Encoding("UTF-8")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = Encoding("latin1")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	enc, err = Encoding("shift_jis")
	require.NoError(t, err)
	assert.NotNil(t, enc)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.tsv")
	writeFile(t, path, []byte("APPLICATION_ID\tFY\n10\t2020\n"))

	table, summary, err := ReadFile(path, "utf-8", nil)
	require.NoError(t, err)

	assert.Equal(t, tables.New([]string{tables.ApplicationID, "FY"}, []any{"10", "2020"}), table)
	assert.Equal(t, report.StatusOK, summary.Status)
	assert.Equal(t, "projects", summary.Name)
	assert.Equal(t, 1, summary.Rows)
}

func TestReadFile_Failures(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, nil)

	_, summary, err := ReadFile(empty, "utf-8", nil)
	require.ErrorIs(t, err, ErrIngest)
	assert.Equal(t, report.StatusFailed, summary.Status)

	_, _, err = ReadFile(filepath.Join(dir, "notes.txt"), "utf-8", nil)
	assert.ErrorIs(t, err, ErrIngest)

	_, _, err = ReadFile(filepath.Join(dir, "absent.csv"), "utf-8", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSupported(t *testing.T) {
	for name, want := range map[string]bool{
		"a.csv":       true,
		"a.TSV":       true,
		"a.xlsx":      true,
		"a.jsonl.gz":  true,
		"a.part2.csv": true,
		"a.txt":       false,
		"README":      false,
		"a.parquet":   false,
	} {
		assert.Equal(t, want, Supported(name), name)
	}
}
