package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "natours/data/db"
	dbbasic "natours/data/db/basic"
	"natours/data/db/migrate"
	ormbasic "natours/data/orm/basic"
	"natours/domain/entity"
	"natours/domain/tour"
	"natours/domain/user"
	"natours/errors"
	"natours/query"
)

type fixture struct {
	tours *Tours
	users *Users
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := dbbasic.New(core.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(ctx, db))

	var seq atomic.Int64
	next := func() (int64, error) { return seq.Add(1), nil }
	o := ormbasic.New(db)
	return &fixture{
		tours: NewTours(o, WithIDGenerator(next)),
		users: NewUsers(o, WithIDGenerator(next)),
	}
}

func newTour(name string, difficulty tour.Difficulty, price float64) *tour.Tour {
	t := &tour.Tour{
		Name:         name,
		Duration:     7,
		MaxGroupSize: 10,
		Difficulty:   difficulty,
		Price:        price,
		Summary:      name + " summary",
		ImageCover:   "cover.jpg",
	}
	t.ApplyDefaults()
	return t
}

func request(t *testing.T, raw string) query.Request {
	t.Helper()
	req, err := query.ParseQuery(raw)
	require.NoError(t, err)
	return req
}

func namesOf(tours []*tour.Tour) []string {
	out := make([]string, len(tours))
	for i, t := range tours {
		out[i] = t.Name
	}
	return out
}

func TestTours_FindWorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{
		newTour("A", tour.Easy, 100),
		newTour("B", tour.Easy, 300),
		newTour("C", "hard", 50),
	}))

	got, _, err := f.tours.Find(ctx, request(t, "difficulty=easy&sort=-price&limit=2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, namesOf(got))
}

func TestTours_FindRangeAndFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{
		newTour("Cheap", tour.Easy, 400),
		newTour("Middle", tour.Medium, 1200),
		newTour("Pricey", tour.Difficult, 2500),
	}))

	got, fields, err := f.tours.Find(ctx, request(t, "price[gte]=1000&price[lt]=2000&fields=name,price"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Middle", got[0].Name)
	assert.Equal(t, []string{"id", "name", "price"}, fields)
	assert.Empty(t, got[0].Summary)

	doc, err := got[0].Document(fields)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "name", "price"}, keysOf(doc))
}

func TestTours_FindDefaultSortNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := newTour("Older", tour.Easy, 100)
	older.CreatedAt = entity.NewTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := newTour("Newer", tour.Easy, 100)
	newer.CreatedAt = entity.NewTime(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{older, newer}))

	got, fields, err := f.tours.Find(ctx, query.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Newer", "Older"}, namesOf(got))
	assert.NotContains(t, fields, "__v")
}

func TestTours_FindVirtualField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tours.Create(ctx, newTour("Weekly", tour.Easy, 100)))

	got, fields, err := f.tours.Find(ctx, request(t, "fields=durationWeeks"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"id", "duration", "durationWeeks"}, fields)

	doc, err := got[0].Document(fields)
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc["durationWeeks"])
}

func TestTours_FindExcludeVirtualField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tours.Create(ctx, newTour("Weekly", tour.Easy, 100)))

	got, fields, err := f.tours.Find(ctx, request(t, "fields=-durationWeeks"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotContains(t, fields, "durationWeeks")
	assert.Contains(t, fields, "duration")

	doc, err := got[0].Document(fields)
	require.NoError(t, err)
	assert.NotContains(t, doc, "durationWeeks")
	assert.Contains(t, doc, "duration")

	got, fields, err = f.tours.Find(ctx, request(t, "fields=-durationWeeks,-summary"))
	require.NoError(t, err)
	doc, err = got[0].Document(fields)
	require.NoError(t, err)
	assert.NotContains(t, doc, "durationWeeks")
	assert.NotContains(t, doc, "summary")
	assert.Contains(t, doc, "name")
}

func TestTours_PageOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batch := make([]*tour.Tour, 0, 5)
	for _, n := range []string{"One", "Two", "Three", "Four", "Five"} {
		batch = append(batch, newTour(n, tour.Easy, 100))
	}
	require.NoError(t, f.tours.CreateAll(ctx, batch))

	_, _, err := f.tours.Find(ctx, request(t, "page=3&limit=10"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "This page does not exist", err.(errors.IError).Message())

	got, _, err := f.tours.Find(ctx, request(t, "page=2&limit=2"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTours_HugePageIsOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{
		newTour("Alpha Tour", tour.Easy, 100),
		newTour("Beta Tour", tour.Easy, 200),
	}))

	for _, raw := range []string{"page=100000000000000000&limit=100", "page=92233720368547759&limit=100"} {
		got, _, err := f.tours.Find(ctx, request(t, raw))
		require.Error(t, err, raw)
		assert.True(t, errors.IsNotFound(err), raw)
		assert.Nil(t, got, raw)
	}
}

func TestTours_FindRejectsUnknownField(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.tours.Find(context.Background(), request(t, "colour=red"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid field: colour")
}

func TestTours_SecretToursHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	secret := newTour("Hidden", tour.Easy, 100)
	secret.SecretTour = true
	secret.RatingsAverage = 4.9
	secret.StartDates = entity.TimeList{entity.Date(2021, time.March, 1)}
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{secret, newTour("Visible", tour.Easy, 100)}))

	_, err := f.tours.Get(ctx, secret.ID)
	require.Error(t, err)
	assert.Equal(t, tour.NotFoundMessage, err.(errors.IError).Message())

	got, _, err := f.tours.Find(ctx, request(t, "secretTour=true"))
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := f.tours.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := f.tours.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].NumTours)

	plan, err := f.tours.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	assert.Empty(t, plan)

	assert.True(t, errors.IsNotFound(f.tours.Delete(ctx, secret.ID)))
	removed, err := f.tours.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestTours_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := newTour("The Forest Hiker", tour.Easy, 397)
	require.NoError(t, f.tours.Create(ctx, tr))
	require.NotZero(t, tr.ID)

	got, err := f.tours.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "the-forest-hiker", got.Slug)
	assert.Equal(t, tour.DefaultRatingsAverage, got.RatingsAverage)
	assert.False(t, got.CreatedAt.IsZero())

	got.Price = 497
	require.NoError(t, f.tours.Update(ctx, got))
	again, err := f.tours.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 497.0, again.Price)

	dup := newTour("The Forest Hiker", tour.Medium, 100)
	err = f.tours.Create(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, "Duplicate field value: The Forest Hiker. Please use another value", err.(errors.IError).Message())

	require.NoError(t, f.tours.Delete(ctx, tr.ID))
	_, err = f.tours.Get(ctx, tr.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestTours_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mk := func(name string, d tour.Difficulty, price, rating float64, qty int) *tour.Tour {
		tr := newTour(name, d, price)
		tr.RatingsAverage = rating
		tr.RatingsQuantity = qty
		return tr
	}
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{
		mk("Easy One", tour.Easy, 400, 4.8, 10),
		mk("Easy Two", tour.Easy, 600, 4.6, 20),
		mk("Hard One", tour.Difficult, 2000, 4.5, 5),
		mk("Low Rated", tour.Medium, 9000, 3.0, 1),
	}))

	stats, err := f.tours.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "DIFFICULT", stats[0].ID)
	assert.Equal(t, 2000.0, stats[0].AvgPrice)

	easy := stats[1]
	assert.Equal(t, "EASY", easy.ID)
	assert.Equal(t, int64(2), easy.NumTours)
	assert.Equal(t, int64(30), easy.NumRatings)
	assert.InDelta(t, 4.7, easy.AvgRating, 1e-9)
	assert.Equal(t, 500.0, easy.AvgPrice)
	assert.Equal(t, 400.0, easy.MinPrice)
	assert.Equal(t, 600.0, easy.MaxPrice)
}

func TestTours_MonthlyPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	withDates := func(name string, dates ...entity.Time) *tour.Tour {
		tr := newTour(name, tour.Easy, 100)
		tr.StartDates = dates
		return tr
	}
	require.NoError(t, f.tours.CreateAll(ctx, []*tour.Tour{
		withDates("Alpha", entity.Date(2021, time.July, 1), entity.Date(2021, time.March, 5), entity.Date(2022, time.July, 1)),
		withDates("Beta", entity.Date(2021, time.July, 20), entity.Date(2020, time.December, 31)),
		withDates("Gamma", entity.Date(2021, time.March, 10)),
		withDates("Delta", entity.Date(2021, time.January, 1)),
	}))

	plan, err := f.tours.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	require.Len(t, plan, 3)

	assert.Equal(t, 3, plan[0].Month)
	assert.Equal(t, int64(2), plan[0].NumTourStarts)
	assert.ElementsMatch(t, []string{"Alpha", "Gamma"}, plan[0].Tours)

	assert.Equal(t, 7, plan[1].Month)
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, plan[1].Tours)

	assert.Equal(t, 1, plan[2].Month)
	assert.Equal(t, []string{"Delta"}, plan[2].Tours)
}

func TestUsers_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := user.Signup{
		Name: "Jonas", Email: "Hello@Jonas.io", Password: "pass1234", PasswordConfirm: "pass1234",
	}.NewUser(user.NewHasher(4))
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, u))

	got, err := f.users.FindByEmail(ctx, "HELLO@jonas.io")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Password, got.Password)

	dup := &user.User{Name: "Other", Email: "hello@jonas.io", Password: "x"}
	err = f.users.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicate(err))

	_, _, err = f.users.Find(ctx, request(t, "password=x"))
	assert.Error(t, err)

	list, fields, err := f.users.Find(ctx, request(t, "sort=name"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NotContains(t, fields, "password")

	require.NoError(t, f.users.Delete(ctx, u.ID))
	_, err = f.users.Get(ctx, u.ID)
	require.Error(t, err)
	assert.Equal(t, user.NotFoundMessage, err.(errors.IError).Message())
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
