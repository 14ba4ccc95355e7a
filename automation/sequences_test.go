package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascentcrm/models"
	"ascentcrm/utils"
)

func TestCreateSequenceRenumbersSteps(t *testing.T) {
	db := setupTestDB(t)
	store := NewSequenceStore(db)
	tmpl := createTestTemplate(t, db, "welcome")

	seq, err := store.CreateSequence("Welcome drip", "post-inquiry welcome", models.TriggerNewLead,
		models.TriggerCondition{MaxScore: 40}, []StepInput{
			{DayOffset: 0, TemplateID: tmpl.ID},
			{DayOffset: 3, TemplateID: tmpl.ID},
			{DayOffset: 7, TemplateID: tmpl.ID},
		})
	require.NoError(t, err)
	assert.True(t, seq.IsActive)

	loaded, err := store.GetSequence(seq.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 3)
	for i, step := range loaded.Steps {
		assert.Equal(t, i, step.StepNumber)
	}
	assert.Equal(t, []int{0, 3, 7}, []int{loaded.Steps[0].DayOffset, loaded.Steps[1].DayOffset, loaded.Steps[2].DayOffset})
}

func TestCreateSequenceRejectsUnknownTrigger(t *testing.T) {
	db := setupTestDB(t)
	store := NewSequenceStore(db)
	tmpl := createTestTemplate(t, db, "welcome")

	_, err := store.CreateSequence("Broken", "", "page_scroll", models.TriggerCondition{},
		[]StepInput{{DayOffset: 0, TemplateID: tmpl.ID}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_scroll")
}

func TestGetSequenceNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewSequenceStore(db)

	_, err := store.GetSequence(404)
	assert.ErrorIs(t, err, ErrSequenceNotFound)
}

func TestUpdateSequenceReplacesSteps(t *testing.T) {
	db := setupTestDB(t)
	store := NewSequenceStore(db)
	tmpl := createTestTemplate(t, db, "welcome")

	seq, err := store.CreateSequence("Welcome drip", "", models.TriggerNewLead,
		models.TriggerCondition{}, []StepInput{
			{DayOffset: 0, TemplateID: tmpl.ID},
			{DayOffset: 3, TemplateID: tmpl.ID},
		})
	require.NoError(t, err)

	updated, err := store.UpdateSequence(seq.ID, "Renamed drip", "", nil, utils.Pointer(false),
		[]StepInput{{DayOffset: 1, TemplateID: tmpl.ID}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed drip", updated.Name)
	assert.False(t, updated.IsActive)

	loaded, err := store.GetSequence(seq.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, 1, loaded.Steps[0].DayOffset)
}

func TestGetActiveSequencesFiltersInactive(t *testing.T) {
	db := setupTestDB(t)
	store := NewSequenceStore(db)

	active := createTestSequence(t, db, models.TriggerNewLead, 0)
	inactive := createTestSequence(t, db, models.TriggerPostQuote, 0)
	_, err := store.UpdateSequence(inactive.ID, "", "", nil, utils.Pointer(false), nil)
	require.NoError(t, err)

	sequences, err := store.GetActiveSequences()
	require.NoError(t, err)
	require.Len(t, sequences, 1)
	assert.Equal(t, active.ID, sequences[0].ID)
}

func TestTemplateRendererFillsTripFields(t *testing.T) {
	db := setupTestDB(t)
	renderer := NewTemplateRenderer(db)

	tmpl := models.EmailTemplate{
		Name:        "trip-recap",
		Subject:     "Your {{join .Destinations \" and \"}} plans",
		HTMLContent: "<p>Hi {{.ClientName}}, budget {{.Budget}}, dates {{.TravelDates}}.</p>",
	}
	require.NoError(t, db.Create(&tmpl).Error)

	subject, body, err := renderer.Render(tmpl.ID, RenderData{
		ClientName:   "Alex",
		Destinations: []string{"Kilimanjaro", "Toubkal"},
		Budget:       "9000 USD",
		TravelDates:  "october",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your Kilimanjaro and Toubkal plans", subject)
	assert.Contains(t, body, "Hi Alex, budget 9000 USD, dates october.")
}

func TestTemplateRendererMissingTemplate(t *testing.T) {
	db := setupTestDB(t)
	renderer := NewTemplateRenderer(db)

	_, _, err := renderer.Render(999, RenderData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
