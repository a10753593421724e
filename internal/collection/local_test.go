package collection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/roboclub-my/console-api/pkg/errors"
)

type row struct {
	Name   string
	Status string
}

func rowField(r row, field string) string {
	switch field {
	case "name":
		return r.Name
	case "status":
		return r.Status
	}
	return ""
}

func sampleRows() []row {
	return []row{
		{Name: "Cyber Junior", Status: "approved"},
		{Name: "Alor Setar Robotics", Status: "pending"},
		{Name: "Bangsar Bots", Status: "approved"},
		{Name: "Damansara STEM", Status: "rejected"},
	}
}

func TestLocalFilterContains(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 10)

	require.NoError(t, v.ApplyFilter(context.Background(), "name", Contains("robo")))
	page := v.CurrentPage()
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Alor Setar Robotics", page.Rows[0].Name)
}

func TestLocalFiltersAreANDCombined(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 10)

	require.NoError(t, v.ApplyFilter(context.Background(), "status", AnyOf("approved")))
	require.NoError(t, v.ApplyFilter(context.Background(), "name", Contains("bangsar")))
	page := v.CurrentPage()
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Bangsar Bots", page.Rows[0].Name)
}

func TestLocalEmptyAnyOfMatchesAll(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 10)

	require.NoError(t, v.ApplyFilter(context.Background(), "status", AnyOf()))
	assert.Equal(t, 4, v.CurrentPage().TotalRecords)
}

func TestLocalSortAndRestoreSourceOrder(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 10)

	require.NoError(t, v.ApplySort(context.Background(), "name", Ascending))
	page := v.CurrentPage()
	assert.Equal(t, "Alor Setar Robotics", page.Rows[0].Name)
	assert.Equal(t, "Damansara STEM", page.Rows[3].Name)

	require.NoError(t, v.ApplySort(context.Background(), "name", Descending))
	assert.Equal(t, "Damansara STEM", v.CurrentPage().Rows[0].Name)

	// Clearing the sort restores source ordering.
	require.NoError(t, v.ApplySort(context.Background(), "", Ascending))
	assert.Equal(t, "Cyber Junior", v.CurrentPage().Rows[0].Name)
}

func TestLocalPagination(t *testing.T) {
	rows := make([]row, 97)
	for i := range rows {
		rows[i] = row{Name: fmt.Sprintf("centre-%03d", i), Status: "approved"}
	}
	v := NewLocal(rows, rowField, 25)

	page := v.CurrentPage()
	assert.Equal(t, 97, page.TotalRecords)
	assert.Equal(t, 4, page.PageCount)
	assert.Len(t, page.Rows, 25)

	require.NoError(t, v.GotoPage(context.Background(), 3))
	page = v.CurrentPage()
	assert.Len(t, page.Rows, 22)
	assert.Equal(t, "centre-075", page.Rows[0].Name)
}

func TestLocalGotoPageOutOfRange(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 2)

	err := v.GotoPage(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPageOutOfRange.Code, appErrors.FromError(err).Code)

	err = v.GotoPage(context.Background(), -1)
	require.Error(t, err)
}

func TestLocalFilterResetsToFirstPage(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 2)

	require.NoError(t, v.GotoPage(context.Background(), 1))
	require.NoError(t, v.ApplyFilter(context.Background(), "status", AnyOf("approved")))
	assert.Equal(t, 0, v.CurrentPage().PageIndex)
}

func TestLocalSetPageSize(t *testing.T) {
	v := NewLocal(sampleRows(), rowField, 2)

	require.NoError(t, v.GotoPage(context.Background(), 1))
	require.NoError(t, v.SetPageSize(context.Background(), 3))
	page := v.CurrentPage()
	assert.Equal(t, 0, page.PageIndex)
	assert.Equal(t, 2, page.PageCount)

	require.Error(t, v.SetPageSize(context.Background(), 0))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 4, PageCount(97, 25))
	assert.Equal(t, 1, PageCount(1, 25))
	assert.Equal(t, 0, PageCount(0, 25))
	assert.Equal(t, 0, PageCount(10, 0))
}
