package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() domain.Table {
	return domain.Table{
		ID:      "t1",
		Name:    "Inventory",
		Headers: []string{"Item", "Qty"},
		Rows: []domain.Row{
			{RowID: "r1", Cells: []string{"Widget", "10"}},
			{RowID: "r2", Cells: []string{"Gadget", "5"}},
		},
	}
}

func TestTableWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Table(sampleTable(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Inventory")
	require.NoError(t, err)
	require.Equal(t, []string{"Item", "Qty"}, rows[0])
	require.Equal(t, []string{"Widget", "10"}, rows[1])
	require.Equal(t, []string{"Gadget", "5"}, rows[2])
}

func TestWorkbookWritesOneSheetPerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	second := sampleTable()
	second.ID, second.Name = "t2", "Archive"

	require.NoError(t, Workbook([]domain.Table{sampleTable(), second}, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.ElementsMatch(t, []string{"Inventory", "Archive"}, f.GetSheetList())
}

func TestWorkbookRejectsEmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := Workbook(nil, path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	require.Error(t, statErr)
}

func TestSheetNameFallsBackToIDAndTruncates(t *testing.T) {
	table := domain.Table{ID: "fallback-id", Name: ""}
	require.Equal(t, "fallback-id", sheetName(table))

	long := domain.Table{Name: "this-sheet-name-is-definitely-longer-than-31-chars"}
	require.Len(t, sheetName(long), 31)
}
