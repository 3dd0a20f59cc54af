package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID       uint64 `gorm:"primarykey"`
	Owner    uint64
	Assignee *uint64
	Title    string
	Status   string
	DueDate  time.Time
}

func (r *row) Field(column string) (any, bool) {
	switch column {
	case "id":
		return r.ID, true
	case "owner":
		return r.Owner, true
	case "assignee":
		if r.Assignee == nil {
			return nil, true
		}
		return *r.Assignee, true
	case "title":
		return r.Title, true
	case "status":
		return r.Status, true
	case "due_date":
		return r.DueDate, true
	}
	return nil, false
}

func ptr(v uint64) *uint64 { return &v }

func TestCompile_NestsOrGroups(t *testing.T) {
	scope := Or(Eq("owner", 1), Eq("assignee", 1))
	filter := Or(Contains("title", "Report"), Contains("description", "Report"))

	sql, args := Compile(And(scope, filter, Eq("status", "pending")))

	assert.Equal(t, `((owner = ? OR assignee = ?) AND (LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!') AND status = ?)`, sql)
	assert.Equal(t, []any{1, 1, "%report%", "%report%", "pending"}, args)
}

func TestAndOr_Simplification(t *testing.T) {
	assert.True(t, IsAll(And()))
	assert.True(t, IsAll(And(All(), All())))
	assert.Equal(t, Eq("a", 1), And(All(), Eq("a", 1)))
	assert.Equal(t, None(), And(Eq("a", 1), None()))
	assert.Equal(t, None(), Or())
	assert.True(t, IsAll(Or(Eq("a", 1), All())))
	assert.Equal(t, None(), In[uint64]("a", nil))

	sql, _ := Compile(In[uint64]("a", nil))
	assert.Equal(t, "1 = 0", sql)
}

func TestMatch(t *testing.T) {
	now := time.Now()
	r := &row{ID: 1, Owner: 7, Assignee: ptr(9), Title: "Quarterly Report", Status: "pending", DueDate: now.Add(-time.Hour)}

	assert.True(t, Match(Eq("owner", 7), r))
	assert.True(t, Match(Eq("owner", uint64(7)), r))
	assert.False(t, Match(Eq("owner", 8), r))
	assert.True(t, Match(In("assignee", []uint64{3, 9}), r))
	assert.False(t, Match(In("assignee", []uint64{}), r))
	assert.True(t, Match(NotNull("assignee"), r))
	assert.False(t, Match(IsNull("assignee"), r))
	assert.True(t, Match(Lt("due_date", now), r))
	assert.True(t, Match(Contains("title", "REPORT"), r))
	assert.False(t, Match(Eq("missing", 1), r))
	assert.True(t, Match(And(Or(Eq("owner", 1), Eq("assignee", 9)), Eq("status", "pending")), r))

	r.Assignee = nil
	assert.True(t, Match(IsNull("assignee"), r))
	assert.False(t, Match(Eq("assignee", 9), r))
}

// The SQL rendering and the in-memory evaluation must select the same rows
func TestCompileAndMatchAgree(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))

	now := time.Now().UTC()
	rows := []*row{
		{Owner: 1, Assignee: ptr(2), Title: "Write report", Status: "pending", DueDate: now.Add(-time.Hour)},
		{Owner: 2, Assignee: ptr(1), Title: "Review", Status: "completed", DueDate: now.Add(time.Hour)},
		{Owner: 3, Title: "Plan sprint", Status: "in-progress", DueDate: now.Add(-2 * time.Hour)},
		{Owner: 3, Assignee: ptr(4), Title: "Report bugs", Status: "pending", DueDate: now.Add(2 * time.Hour)},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}

	predicates := []Predicate{
		All(),
		Or(Eq("owner", 1), Eq("assignee", 1)),
		And(Or(Eq("owner", 3), Eq("assignee", 1)), Or(Contains("title", "report"), Eq("status", "completed"))),
		And(In("status", []string{"pending", "in-progress"}), Lt("due_date", now)),
		And(NotNull("assignee"), In("assignee", []uint64{2, 4})),
		IsNull("assignee"),
		In[uint64]("assignee", nil),
	}

	for _, p := range predicates {
		var fromDB []row
		require.NoError(t, Apply(db, p).Order("id").Find(&fromDB).Error)

		var dbIDs, memIDs []uint64
		for _, r := range fromDB {
			dbIDs = append(dbIDs, r.ID)
		}
		for _, r := range rows {
			if Match(p, r) {
				memIDs = append(memIDs, r.ID)
			}
		}

		sql, _ := Compile(p)
		assert.Equal(t, memIDs, dbIDs, sql)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!% off", escapeLike("50% off"))
	assert.Equal(t, "snake!_case", escapeLike("snake_case"))
	assert.Equal(t, "wow!!", escapeLike("wow!"))
	assert.Equal(t, `back\slash`, escapeLike(`back\slash`))
}

// LIKE metacharacters in a search must match literally, as Match does
func TestCompileAndMatchAgree_LiteralSearch(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))

	rows := []*row{
		{Title: "plain task"},
		{Title: "50% off"},
		{Title: "snake_case"},
		{Title: "wow!"},
		{Title: `back\slash`},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}

	for _, search := range []string{"%", "_", "!", `\`, "50%", "e_c", "w!", "%%", "plain"} {
		p := Contains("title", search)

		var fromDB []row
		require.NoError(t, Apply(db, p).Order("id").Find(&fromDB).Error)

		var dbIDs, memIDs []uint64
		for _, r := range fromDB {
			dbIDs = append(dbIDs, r.ID)
		}
		for _, r := range rows {
			if Match(p, r) {
				memIDs = append(memIDs, r.ID)
			}
		}

		assert.Equal(t, memIDs, dbIDs, search)
		assert.LessOrEqual(t, len(dbIDs), 1, search)
	}
}
