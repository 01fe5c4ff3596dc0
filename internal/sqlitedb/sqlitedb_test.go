package sqlitedb

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/store"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB) uuid.UUID {
	t.Helper()
	id, err := db.CreateUser(context.Background(), "Ada Lovelace", "ada-"+uuid.New().String()+"@example.com")
	require.NoError(t, err)
	return id
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
}

func TestTemplates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	templates, err := db.ListActiveTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 3)
	assert.Equal(t, "modern", templates[0].ID)

	require.NoError(t, db.UpsertTemplate(ctx, types.Template{ID: "modern", Title: "Modern"}, false))
	templates, err = db.ListActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)

	_, err = db.CreateUser(ctx, "Other Ada", "ada@example.com")
	assert.Error(t, err)

	exists, err := db.CheckEmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.UpdatePassword(ctx, id, "hash"))
	u, err := db.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.PasswordSet)
	assert.Equal(t, "hash", u.PasswordHash)

	u, err = db.GetUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.Error(t, db.UpdatePassword(ctx, uuid.New(), "hash"))
}

func TestCVLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)
	other := createTestUser(t, db)
	tpl := "classic"

	id, err := db.CreateCV(ctx, &types.CVRecord{
		UserID: owner, Title: types.UntitledCV, Data: types.NewCVDocument(), CurrentStep: 1, TemplateID: &tpl,
	})
	require.NoError(t, err)

	rec, err := db.GetCV(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, owner, rec.UserID)
	require.NotNil(t, rec.TemplateID)
	assert.Equal(t, "classic", *rec.TemplateID)
	assert.False(t, rec.CreatedAt.IsZero())

	ok, err := db.UpdateCV(ctx, id, other, &types.CVPatch{Data: types.NewCVDocument(), CurrentStep: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.UpdateCV(ctx, id, owner, &types.CVPatch{Data: types.NewCVDocument(), CurrentStep: 9, IsComplete: true})
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err = db.GetCV(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.IsComplete)
	assert.Nil(t, rec.TemplateID)
	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt))

	ok, err = db.DeleteCV(ctx, id, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	rec, err = db.GetCV(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreateCV_RejectsUnknownTemplate(t *testing.T) {
	db := openTestDB(t)
	owner := createTestUser(t, db)
	tpl := "does-not-exist"

	_, err := db.CreateCV(context.Background(), &types.CVRecord{
		UserID: owner, Title: "x", Data: types.NewCVDocument(), CurrentStep: 1, TemplateID: &tpl,
	})
	assert.Error(t, err)
}

func TestListCVsByUser_MostRecentFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return base }

	first, err := db.CreateCV(ctx, &types.CVRecord{UserID: owner, Title: "first", Data: types.NewCVDocument(), CurrentStep: 1})
	require.NoError(t, err)
	second, err := db.CreateCV(ctx, &types.CVRecord{UserID: owner, Title: "second", Data: types.NewCVDocument(), CurrentStep: 1})
	require.NoError(t, err)

	list, err := db.ListCVsByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)

	_, err = db.UpdateCV(ctx, first, owner, &types.CVPatch{Data: types.NewCVDocument(), CurrentStep: 3})
	require.NoError(t, err)

	list, err = db.ListCVsByUser(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first, list[0].ID)
	assert.Equal(t, "first", list[0].Title)

	others, err := db.ListCVsByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestDeleteUser_CascadesCVs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)

	id, err := db.CreateCV(ctx, &types.CVRecord{UserID: owner, Title: "x", Data: types.NewCVDocument(), CurrentStep: 1})
	require.NoError(t, err)
	require.NoError(t, db.DeleteUser(ctx, owner))

	rec, err := db.GetCV(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// Persisting through the store and hydrating into a fresh store yields the same document.
func TestStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)
	client := remote.NewClient(db, remote.StaticIdentity(owner))

	doc := types.NewCVDocument()
	doc.PersonalInfo = types.PersonalInfo{FullName: "Ada Lovelace", Email: "ada@x.com", Phone: "555", GitHub: "ada"}
	doc.Education = []types.Education{{ID: "e1", School: "Home", Current: true, EndDate: "1835-01"}}
	doc.Skills = []string{"C++"}
	doc.Summary = "Pioneer."
	doc.Projects = []types.Project{{ID: "p1", Title: "Engine", Technologies: []string{"Cards", ""}}}
	doc.Languages = []types.Language{{ID: "l1", Language: "French", Proficiency: types.ProficiencyFluent}}
	doc.References = []types.Reference{{ID: "r1", Name: "Charles Babbage"}}
	doc.Awards = []string{"", ""}

	tests := map[string]types.CVDocument{
		"empty": types.NewCVDocument(),
		"full":  doc,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			writer := store.New(client, store.Options{AutosaveDelay: time.Hour})
			defer writer.Close()
			for _, section := range types.AllSections {
				v, err := want.SectionValue(section)
				require.NoError(t, err)
				require.NoError(t, writer.Update(section, v))
			}
			require.NoError(t, writer.SetStep(7))
			require.NoError(t, writer.Persist(ctx))

			reader := store.New(client, store.Options{AutosaveDelay: time.Hour})
			defer reader.Close()
			require.NoError(t, reader.Hydrate(ctx, writer.CVID()))

			if diff := cmp.Diff(want, reader.Document()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, 7, reader.Step())
		})
	}
}

func TestStoreHydrate_OtherUsersCV(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)
	intruder := createTestUser(t, db)

	writer := store.New(remote.NewClient(db, remote.StaticIdentity(owner)), store.Options{AutosaveDelay: time.Hour})
	defer writer.Close()
	require.NoError(t, writer.Persist(ctx))

	reader := store.New(remote.NewClient(db, remote.StaticIdentity(intruder)), store.Options{AutosaveDelay: time.Hour})
	defer reader.Close()
	err := reader.Hydrate(ctx, writer.CVID())
	var nf *remote.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
