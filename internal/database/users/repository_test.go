package users

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func newUser(id, name, email string, role entities.UserRole) *entities.User {
	return &entities.User{UserID: id, Name: name, Email: email, PasswordHash: "hash", Role: role}
}

func TestRepository_CreateAndLookup(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("S12345678", "Thandi", "thandi@example.com", entities.UserRoleStudent)
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, user.RegistrationDate.IsZero())

	t.Run("by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, "S12345678")
		require.NoError(t, err)
		assert.Equal(t, "Thandi", found.Name)
	})

	t.Run("by email ignores case", func(t *testing.T) {
		found, err := repo.GetByEmail(ctx, "  THANDI@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, "S12345678", found.UserID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "S0")
		assert.ErrorIs(t, err, database.ErrNotFound)
		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := repo.Exists(ctx, "S12345678")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.Exists(ctx, "S0")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("email taken", func(t *testing.T) {
		taken, err := repo.EmailTaken(ctx, "Thandi@example.com", "")
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.EmailTaken(ctx, "thandi@example.com", "S12345678")
		require.NoError(t, err)
		assert.False(t, taken, "own email does not count as taken")
	})

	t.Run("duplicate email rejected by index", func(t *testing.T) {
		err := repo.Create(ctx, newUser("S87654321", "Other", "thandi@example.com", entities.UserRoleStudent))
		assert.Error(t, err)
	})
}

func TestRepository_MaxSequence(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	n, err := repo.MaxSequence(ctx, "L")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Create(ctx, newUser("L001", "Lib", "lib@example.com", entities.UserRoleLibrarian)))
	require.NoError(t, repo.Create(ctx, newUser("L007", "Lec", "lec@example.com", entities.UserRoleLecturer)))
	require.NoError(t, repo.Create(ctx, newUser("Lx", "Odd", "odd@example.com", entities.UserRoleLecturer)))
	require.NoError(t, repo.Create(ctx, newUser("A003", "Adm", "adm@example.com", entities.UserRoleAdmin)))

	n, err = repo.MaxSequence(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = repo.MaxSequence(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRepository_SearchAndRole(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	u1 := newUser("S11111111", "Sipho Dlamini", "sipho@example.com", entities.UserRoleStudent)
	u1.Course = "Computer Science"
	u2 := newUser("L001", "Lerato", "lerato@example.com", entities.UserRoleLecturer)
	u2.Department = "Mathematics"
	require.NoError(t, repo.Create(ctx, u1))
	require.NoError(t, repo.Create(ctx, u2))

	found, err := repo.Search(ctx, "computer")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "S11111111", found[0].UserID)

	found, err = repo.Search(ctx, "MATH")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "L001", found[0].UserID)

	found, err = repo.Search(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, found)

	byRole, err := repo.ListByRole(ctx, entities.UserRoleLecturer)
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, "Lerato", byRole[0].Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_LoanCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)))
	require.NoError(t, repo.Create(ctx, newUser("S2", "Ben", "ben@example.com", entities.UserRoleStudent)))

	loans := []entities.Loan{
		{LoanID: "a", UserID: "S1", BookID: "B1", LoanDate: now, DueDate: now.Add(-48 * time.Hour), Status: entities.LoanStatusActive},
		{LoanID: "b", UserID: "S1", BookID: "B2", LoanDate: now, DueDate: now.Add(48 * time.Hour), Status: entities.LoanStatusActive},
		{LoanID: "c", UserID: "S2", BookID: "B3", LoanDate: now, DueDate: now.Add(48 * time.Hour), Status: entities.LoanStatusActive},
		{LoanID: "d", UserID: "S2", BookID: "B4", LoanDate: now, DueDate: now.Add(-48 * time.Hour), Status: entities.LoanStatusReturned, ReturnDate: &now},
	}
	require.NoError(t, db.Create(&loans).Error)

	active, err := repo.WithActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "S1", active[0].UserID)
	assert.Equal(t, int64(2), active[0].LoanCount)
	assert.Equal(t, int64(1), active[1].LoanCount)

	overdue, err := repo.WithOverdueLoans(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "S1", overdue[0].UserID)
	assert.Equal(t, int64(1), overdue[0].LoanCount)
}

func TestRepository_Update(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)))

	updated, err := repo.Update(ctx, "S1", map[string]interface{}{"name": "Annie", "phone": "0821234567"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "0821234567", updated.Phone)

	_, err = repo.Update(ctx, "S404", map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_SaveTwoFactorKeepsProfile(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)))
	stale, err := repo.GetByID(ctx, "S1")
	require.NoError(t, err)

	// A profile edit lands between the read and the two-factor write.
	_, err = repo.Update(ctx, "S1", map[string]interface{}{"name": "Annie"})
	require.NoError(t, err)

	stale.TwoFactorEnabled = true
	stale.TwoFactorSecret = "JBSWY3DPEHPK3PXP"
	stale.BackupCodes = []string{"AAAA1111", "BBBB2222"}
	require.NoError(t, repo.SaveTwoFactor(ctx, stale))

	reloaded, err := repo.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Annie", reloaded.Name)
	assert.True(t, reloaded.TwoFactorEnabled)
	assert.Equal(t, []string{"AAAA1111", "BBBB2222"}, reloaded.BackupCodes)

	missing := newUser("S404", "Nobody", "nobody@example.com", entities.UserRoleStudent)
	assert.ErrorIs(t, repo.SaveTwoFactor(ctx, missing), database.ErrNotFound)
}

func TestRepository_ConsumeBackupCode(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)
	require.NoError(t, repo.Create(ctx, user))

	used, err := repo.ConsumeBackupCode(ctx, "S1", "AAAA1111")
	require.NoError(t, err)
	assert.False(t, used, "no codes stored yet")

	user.TwoFactorEnabled = true
	user.BackupCodes = []string{"AAAA1111", "BBBB2222"}
	require.NoError(t, repo.SaveTwoFactor(ctx, user))

	used, err = repo.ConsumeBackupCode(ctx, "S1", " aaaa1111 ")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = repo.ConsumeBackupCode(ctx, "S1", "AAAA1111")
	require.NoError(t, err)
	assert.False(t, used, "a code is spent once")

	used, err = repo.ConsumeBackupCode(ctx, "S1", "CCCC3333")
	require.NoError(t, err)
	assert.False(t, used)

	reloaded, err := repo.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBBB2222"}, reloaded.BackupCodes)

	_, err = repo.ConsumeBackupCode(ctx, "S404", "BBBB2222")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_ConsumeBackupCodeConcurrent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)
	user.TwoFactorEnabled = true
	user.BackupCodes = []string{"ONLYONCE"}
	require.NoError(t, repo.Create(ctx, user))

	const attempts = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		spent int
		start = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// A locked database is a failed sign-in, never a second success.
			if used, err := repo.ConsumeBackupCode(ctx, "S1", "ONLYONCE"); err == nil && used {
				mu.Lock()
				spent++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, spent)
	reloaded, err := repo.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.BackupCodes)
}

func TestRepository_LoginHistoryAndDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("S1", "Ann", "ann@example.com", entities.UserRoleStudent)
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.RecordLogin(ctx, &entities.LoginRecord{Email: user.Email, UserID: user.UserID, Method: entities.LoginMethodPassword}))
	require.NoError(t, repo.RecordLogin(ctx, &entities.LoginRecord{Email: user.Email, UserID: user.UserID, Method: entities.LoginMethodTOTP}))

	history, err := repo.LoginHistory(ctx, "S1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	result, err := repo.Delete(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result[database.StepLogins])
	assert.Equal(t, int64(1), result[database.StepUser])

	_, err = repo.GetByID(ctx, "S1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
