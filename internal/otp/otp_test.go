package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"group_savings/internal/db"
	"group_savings/internal/domain"
	"group_savings/internal/mailer"
	"group_savings/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSender struct {
	sent []mailer.Email
	err  error
}

func (f *fakeSender) Send(msg mailer.Email) error {
	f.sent = append(f.sent, msg)
	return f.err
}

var codeRe = regexp.MustCompile(`code is: (\d{6})`)

func (f *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	m := codeRe.FindStringSubmatch(f.sent[len(f.sent)-1].TextBody)
	require.Len(t, m, 2)
	return m[1]
}

func setup(t *testing.T) (*Service, *fakeSender, *gorm.DB) {
	t.Helper()
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	hash, err := utils.HashPassword("old-password")
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&domain.Profile{ID: "u1", Name: "Rahim", Email: "rahim@example.com", PasswordHash: hash}).Error)

	sender := &fakeSender{}
	return New(gdb, sender, "DreamLand Group"), sender, gdb
}

func passwordHash(t *testing.T, gdb *gorm.DB) string {
	t.Helper()
	var p domain.Profile
	require.NoError(t, gdb.Where("id = ?", "u1").Take(&p).Error)
	return p.PasswordHash
}

func TestIssueAndReset(t *testing.T) {
	s, sender, gdb := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Issue(ctx, "  Rahim@Example.com "))
	require.Len(t, sender.sent, 1)
	require.Equal(t, "rahim@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].TextBody, "10 minutes")
	code := sender.lastCode(t)

	var rec domain.PasswordResetOTP
	require.NoError(t, gdb.Take(&rec).Error)
	require.NotEqual(t, code, rec.CodeHash)

	require.NoError(t, s.Reset(ctx, "rahim@example.com", code, "new-password"))
	require.True(t, utils.CheckPassword(passwordHash(t, gdb), "new-password"))

	// Single use
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", code, "another-pass"), ErrNotFound)
}

func TestIssueUnknownEmailIsSilent(t *testing.T) {
	s, sender, gdb := setup(t)
	require.NoError(t, s.Issue(context.Background(), "nobody@example.com"))
	require.Empty(t, sender.sent)
	var n int64
	require.NoError(t, gdb.Model(&domain.PasswordResetOTP{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestIssueSupersedesPreviousCode(t *testing.T) {
	s, sender, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	first := sender.lastCode(t)
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	second := sender.lastCode(t)

	if first != second {
		require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", first, "new-password"), ErrInvalidCode)
	}
	require.NoError(t, s.Reset(ctx, "rahim@example.com", second, "new-password"))
}

func TestIssueSurvivesDisabledMail(t *testing.T) {
	s, sender, gdb := setup(t)
	sender.err = mailer.ErrMailDisabled
	require.NoError(t, s.Issue(context.Background(), "rahim@example.com"))
	var n int64
	require.NoError(t, gdb.Model(&domain.PasswordResetOTP{}).Count(&n).Error)
	require.Equal(t, int64(1), n)

	sender.err = errors.New("connection refused")
	require.NoError(t, s.Issue(context.Background(), "rahim@example.com"))
}

func TestResetAttemptLimit(t *testing.T) {
	s, sender, gdb := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	code := sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < MaxVerifyAttempts; i++ {
		require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", wrong, "new-password"), ErrInvalidCode)
	}
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", code, "new-password"), ErrTooManyAttempts)
	require.True(t, utils.CheckPassword(passwordHash(t, gdb), "old-password"))
}

func TestResetLastAttemptIsClaimedOnce(t *testing.T) {
	s, sender, gdb := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	code := sender.lastCode(t)

	// One attempt left: the first caller claims it, the cap holds for the next
	require.NoError(t, gdb.Model(&domain.PasswordResetOTP{}).Where("email = ?", "rahim@example.com").
		Update("attempts", MaxVerifyAttempts-1).Error)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", wrong, "new-password"), ErrInvalidCode)
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", code, "new-password"), ErrTooManyAttempts)

	var rec domain.PasswordResetOTP
	require.NoError(t, gdb.Where("email = ?", "rahim@example.com").Take(&rec).Error)
	require.Equal(t, MaxVerifyAttempts, rec.Attempts)
	require.False(t, rec.Used)
}

func TestResetCapHeldByStore(t *testing.T) {
	s, sender, gdb := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	code := sender.lastCode(t)

	// Attempts spent by other requests after this one loaded the code
	require.NoError(t, gdb.Model(&domain.PasswordResetOTP{}).Where("email = ?", "rahim@example.com").
		Update("attempts", MaxVerifyAttempts+2).Error)
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", code, "new-password"), ErrTooManyAttempts)
	require.True(t, utils.CheckPassword(passwordHash(t, gdb), "old-password"))
}

func TestResetExpiredCode(t *testing.T) {
	s, sender, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	code := sender.lastCode(t)

	s.now = func() time.Time { return time.Now().Add(DefaultExpiry + time.Minute) }
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", code, "new-password"), ErrNotFound)
}

func TestResetRejectsShortPassword(t *testing.T) {
	s, sender, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, "rahim@example.com"))
	require.ErrorIs(t, s.Reset(ctx, "rahim@example.com", sender.lastCode(t), "short"), utils.ErrPasswordLength)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Regexp(t, `^\d{6}$`, code)
	}
}
