package report

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/regimen-health/regimen/internal/adherence"
	"github.com/regimen-health/regimen/internal/schedule"
	"github.com/regimen-health/regimen/internal/store"
)

func setupBuilder(t *testing.T) (*Builder, *store.Store) {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: conn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewBuilder(st), st
}

func TestBuildGroupsTreatmentsByCondition(t *testing.T) {
	builder, st := setupBuilder(t)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

	asthma := &store.Condition{UserID: "user-1", Name: "Asthma"}
	require.NoError(t, st.CreateCondition(asthma))
	migraine := &store.Condition{UserID: "user-1", Name: "Migraine"}
	require.NoError(t, st.CreateCondition(migraine))

	inhaler := &store.Treatment{
		UserID: "user-1", Name: "Inhaler", Type: store.TypePharmaceutical,
		Frequency: store.FrequencyDaily, ConditionID: asthma.ID, ConditionName: asthma.Name,
	}
	require.NoError(t, st.CreateTreatment(inhaler))
	breathing := &store.Treatment{
		UserID: "user-1", Name: "Breathing exercises", Type: store.TypeNonPharmaceutical,
		Frequency: store.FrequencyDaily, ConditionID: asthma.ID, ConditionName: asthma.Name,
	}
	require.NoError(t, st.CreateTreatment(breathing))

	report, err := builder.Build("user-1", now)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-14", report.GeneratedAt)
	require.Len(t, report.Conditions, 2)

	byName := make(map[string]ConditionSection)
	for _, section := range report.Conditions {
		byName[section.Condition.Name] = section
	}
	assert.Len(t, byName["Asthma"].Treatments, 2)
	assert.Empty(t, byName["Migraine"].Treatments)
	assert.Empty(t, report.Unassigned)
}

func TestBuildUnassignedTreatments(t *testing.T) {
	builder, st := setupBuilder(t)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

	cond := &store.Condition{UserID: "user-1", Name: "Asthma"}
	require.NoError(t, st.CreateCondition(cond))

	orphan := &store.Treatment{
		UserID: "user-1", Name: "Inhaler", Type: store.TypePharmaceutical,
		Frequency: store.FrequencyDaily, ConditionID: cond.ID, ConditionName: cond.Name,
	}
	require.NoError(t, st.CreateTreatment(orphan))
	require.NoError(t, st.DeleteCondition(cond.ID))

	report, err := builder.Build("user-1", now)
	require.NoError(t, err)

	assert.Empty(t, report.Conditions)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, orphan.ID, report.Unassigned[0].ID)
}

func TestBuildAdherenceBlock(t *testing.T) {
	builder, st := setupBuilder(t)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

	cond := &store.Condition{UserID: "user-1", Name: "Asthma"}
	require.NoError(t, st.CreateCondition(cond))
	treatment := &store.Treatment{
		UserID: "user-1", Name: "Inhaler", Type: store.TypePharmaceutical,
		Frequency: store.FrequencyDaily, ConditionID: cond.ID,
	}
	require.NoError(t, st.CreateTreatment(treatment))

	// Completed today and yesterday out of a seven-day window.
	for i := 0; i < 2; i++ {
		_, err := st.RecordCompletion(treatment.ID, "user-1",
			schedule.FormatDate(now.AddDate(0, 0, -i)))
		require.NoError(t, err)
	}

	report, err := builder.Build("user-1", now)
	require.NoError(t, err)

	require.Len(t, report.Adherence.Days, 7)
	assert.Equal(t, "2025-03-14", report.Adherence.Days[6].Date)
	assert.Equal(t, 100, report.Adherence.Days[6].Rate)
	// 2 of 7 treatment-days rounds to 29%.
	assert.Equal(t, 29, report.Adherence.Overall)
	assert.Equal(t, adherence.StatusNeedsImprovement, report.Adherence.Status)
}

func TestBuildEmptyState(t *testing.T) {
	builder, _ := setupBuilder(t)

	report, err := builder.Build("user-1", time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)

	assert.Empty(t, report.Conditions)
	assert.Equal(t, 0, report.Adherence.Overall)
	assert.Equal(t, adherence.StatusNeedsImprovement, report.Adherence.Status)
}
