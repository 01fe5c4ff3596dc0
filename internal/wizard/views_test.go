package wizard

import (
	"testing"

	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntry_FreshIDsAndEmptyFields(t *testing.T) {
	s := newStore(t, newMemClient())

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, err := AddEntry(s, types.SectionEducation)
		require.NoError(t, err)
		assert.False(t, seen[id], "id reused: %s", id)
		seen[id] = true
	}

	edu := s.Document().Education
	require.Len(t, edu, 5)
	assert.Equal(t, types.Education{ID: edu[0].ID}, edu[0])
}

func TestAddEntry_LanguageDefaultsToIntermediate(t *testing.T) {
	s := newStore(t, newMemClient())

	id, err := AddEntry(s, types.SectionLanguages)
	require.NoError(t, err)

	langs := s.Document().Languages
	require.Len(t, langs, 1)
	assert.Equal(t, id, langs[0].ID)
	assert.Equal(t, types.ProficiencyIntermediate, langs[0].Proficiency)
}

func TestAddEntry_RejectsNonEntrySections(t *testing.T) {
	s := newStore(t, newMemClient())

	for _, section := range []types.Section{types.SectionSkills, types.SectionSummary, types.SectionReferences} {
		_, err := AddEntry(s, section)
		var kindErr *SectionKindError
		assert.ErrorAs(t, err, &kindErr, "section %s", section)
	}
	assert.Empty(t, s.Document().References)
}

func TestRemoveEntry_IdenticalFieldsRemovesOnlyTarget(t *testing.T) {
	s := newStore(t, newMemClient())

	first, err := AddEntry(s, types.SectionExperience)
	require.NoError(t, err)
	second, err := AddEntry(s, types.SectionExperience)
	require.NoError(t, err)
	for _, id := range []string{first, second} {
		require.NoError(t, PatchEntry(s, types.SectionExperience, id, "company", "Acme"))
		require.NoError(t, PatchEntry(s, types.SectionExperience, id, "position", "Engineer"))
	}

	require.NoError(t, RemoveEntry(s, types.SectionExperience, second))

	exp := s.Document().Experience
	require.Len(t, exp, 1)
	assert.Equal(t, first, exp[0].ID)

	var nf *types.EntryNotFoundError
	assert.ErrorAs(t, RemoveEntry(s, types.SectionExperience, second), &nf)
}

func TestPatchEntry_Fields(t *testing.T) {
	s := newStore(t, newMemClient())

	id, err := AddEntry(s, types.SectionProjects)
	require.NoError(t, err)
	require.NoError(t, PatchEntry(s, types.SectionProjects, id, "title", "Engine"))
	require.NoError(t, PatchEntry(s, types.SectionProjects, id, "technologies", "Go, Postgres"))

	p := s.Document().Projects[0]
	assert.Equal(t, "Engine", p.Title)
	assert.Equal(t, []string{"Go", "Postgres"}, p.Technologies)

	var fe *types.FieldError
	assert.ErrorAs(t, PatchEntry(s, types.SectionProjects, id, "stars", "5"), &fe)
	var nf *types.EntryNotFoundError
	assert.ErrorAs(t, PatchEntry(s, types.SectionProjects, "missing", "title", "x"), &nf)
}

func TestPatchEntry_VolunteerWork(t *testing.T) {
	s := newStore(t, newMemClient())

	id, err := AddEntry(s, types.SectionVolunteerWork)
	require.NoError(t, err)
	require.NoError(t, PatchEntry(s, types.SectionVolunteerWork, id, "current", true))

	vol := s.Document().VolunteerWork
	require.Len(t, vol, 1)
	assert.True(t, vol[0].Current)
	assert.Empty(t, s.Document().Experience)
}

func TestAddSkill_Uniqueness(t *testing.T) {
	s := newStore(t, newMemClient())

	changed, err := AddSkill(s, "Go")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = AddSkill(s, "  Go ")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = AddSkill(s, "")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, []string{"Go"}, s.Document().Skills)

	require.NoError(t, RemoveSkill(s, "Go"))
	assert.Empty(t, s.Document().Skills)
}

func TestItems_AwardsAndInterests(t *testing.T) {
	s := newStore(t, newMemClient())

	i, err := AddItem(s, types.SectionAwards)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = AddItem(s, types.SectionAwards)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	require.NoError(t, SetItem(s, types.SectionAwards, 1, "Medal"))
	assert.Equal(t, []string{"", "Medal"}, s.Document().Awards)

	require.NoError(t, RemoveItem(s, types.SectionAwards, 0))
	assert.Equal(t, []string{"Medal"}, s.Document().Awards)

	var rangeErr *IndexRangeError
	assert.ErrorAs(t, SetItem(s, types.SectionAwards, 3, "x"), &rangeErr)
	assert.ErrorAs(t, RemoveItem(s, types.SectionInterests, 0), &rangeErr)

	var kindErr *SectionKindError
	_, err = AddItem(s, types.SectionSkills)
	assert.ErrorAs(t, err, &kindErr)
}

func TestItems_DuplicatesAllowed(t *testing.T) {
	s := newStore(t, newMemClient())

	for i := 0; i < 2; i++ {
		idx, err := AddItem(s, types.SectionInterests)
		require.NoError(t, err)
		require.NoError(t, SetItem(s, types.SectionInterests, idx, "Poetry"))
	}
	assert.Equal(t, []string{"Poetry", "Poetry"}, s.Document().Interests)
}
