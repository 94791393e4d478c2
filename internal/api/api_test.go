package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"group_savings/internal/db"
	"group_savings/internal/domain"
	"group_savings/internal/ledger"
	"group_savings/internal/mailer"
	"group_savings/internal/otp"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type fakeSender struct{ sent []mailer.Email }

func (f *fakeSender) Send(msg mailer.Email) error {
	f.sent = append(f.sent, msg)
	return nil
}

type testApp struct {
	r      *gin.Engine
	db     *gorm.DB
	mail   *fakeSender
	admin  string // token
	member string // token
	ids    map[string]string
}

func setupRouterWithDB(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// Use a per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := db.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sender := &fakeSender{}
	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:        gdb,
		Ledger:    ledger.New(gdb, nil),
		OTP:       otp.New(gdb, sender, "DreamLand Group"),
		JWTSecret: testSecret,
	})
	app := &testApp{r: r, db: gdb, mail: sender, ids: map[string]string{}}
	app.admin = app.signUp(t, "Admin", "admin@example.com", true)
	app.member = app.signUp(t, "Member", "member@example.com", false)
	return app
}

// signUp registers a profile through the API and returns its token
func (a *testApp) signUp(t *testing.T, name, email string, admin bool) string {
	t.Helper()
	w := a.do("POST", "/auth/signup", "", gin.H{"name": name, "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Profile domain.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	a.ids[email] = resp.Profile.ID
	if admin {
		require.NoError(t, a.db.Model(&domain.Profile{}).Where("id = ?", resp.Profile.ID).Update("is_admin", true).Error)
	}
	return a.signIn(t, email, "password123")
}

func (a *testApp) signIn(t *testing.T, email, password string) string {
	t.Helper()
	w := a.do("POST", "/auth/signin", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

// group creates a group and moves both test profiles into it
func (a *testApp) group(t *testing.T) uint {
	t.Helper()
	w := a.do("POST", "/admin/groups", a.admin, gin.H{"name": "Dreamland"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Group domain.Group `json:"group"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, email := range []string{"admin@example.com", "member@example.com"} {
		w = a.do("PUT", "/admin/members/"+a.ids[email]+"/group", a.admin, gin.H{"group_id": resp.Group.ID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	return resp.Group.ID
}

func (a *testApp) savings(t *testing.T, token string, groupID uint) ledger.Balance {
	t.Helper()
	w := a.do("GET", "/savings?group_id="+strconv.Itoa(int(groupID)), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Savings ledger.Balance `json:"savings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Savings
}

func (a *testApp) history(t *testing.T, groupID uint) []domain.PaymentHistory {
	t.Helper()
	w := a.do("GET", "/savings/history?group_id="+strconv.Itoa(int(groupID)), a.member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		History []domain.PaymentHistory `json:"history"`
		Total   int64                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(len(resp.History)), resp.Total)
	return resp.History
}

func decodePayment(t *testing.T, w *httptest.ResponseRecorder) domain.Payment {
	t.Helper()
	var resp struct {
		Payment domain.Payment `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Payment
}

func TestAuthFlow(t *testing.T) {
	a := setupRouterWithDB(t)

	// Duplicate email, any case
	w := a.do("POST", "/auth/signup", "", gin.H{"name": "X", "email": "MEMBER@example.com", "password": "password123"})
	require.Equal(t, http.StatusConflict, w.Code)

	// Password too short
	w = a.do("POST", "/auth/signup", "", gin.H{"name": "X", "email": "x@example.com", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"field":"password"`)

	// Bad email
	w = a.do("POST", "/auth/signup", "", gin.H{"name": "X", "email": "not-an-email", "password": "password123"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Wrong password
	w = a.do("POST", "/auth/signin", "", gin.H{"email": "member@example.com", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing and bad tokens
	require.Equal(t, http.StatusUnauthorized, a.do("GET", "/me", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, a.do("GET", "/me", "garbage", nil).Code)

	// Current profile never exposes the hash
	w = a.do("GET", "/me", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "member@example.com")
	require.NotContains(t, w.Body.String(), "password")

	w = a.do("PUT", "/me", a.member, gin.H{"name": "Renamed", "photo_url": "https://cdn.example.com/p.jpg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Profile domain.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Renamed", resp.Profile.Name)
	require.Equal(t, "https://cdn.example.com/p.jpg", *resp.Profile.PhotoURL)

	w = a.do("POST", "/auth/signout", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := setupRouterWithDB(t)
	for _, tc := range []struct{ method, path string }{
		{"PUT", "/admin/savings"},
		{"POST", "/admin/payments"},
		{"GET", "/admin/payments"},
		{"POST", "/admin/groups"},
		{"DELETE", "/admin/members/x"},
	} {
		w := a.do(tc.method, tc.path, a.member, gin.H{})
		require.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}
}

func TestSavingsScenarioOverHTTP(t *testing.T) {
	a := setupRouterWithDB(t)
	groupID := a.group(t)
	memberID := a.ids["member@example.com"]

	// Nothing saved yet
	b := a.savings(t, a.member, groupID)
	require.Equal(t, domain.Amount(0), b.Total)
	require.Equal(t, domain.DefaultGoal, b.Goal)

	// Completed payment of 500
	w := a.do("POST", "/admin/payments", a.admin, gin.H{
		"user_id": memberID, "amount": 500, "month": "May 2024",
		"due_date": "2024-05-10", "payment_date": "2024-05-05",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decodePayment(t, w)
	require.Equal(t, domain.PaymentCompleted, payment.Status)
	require.Equal(t, "cash", payment.PaymentMethod)
	require.Equal(t, domain.Amount(50000), a.savings(t, a.member, groupID).Total)

	// Manual override to 10000 with a note
	w = a.do("PUT", "/admin/savings", a.admin, gin.H{"group_id": groupID, "total_amount": "10000.00", "note": "correction"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, domain.Amount(1_000_000), a.savings(t, a.member, groupID).Total)

	// Delete the payment
	w = a.do("DELETE", "/admin/payments/"+strconv.Itoa(int(payment.ID)), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, domain.Amount(950_000), a.savings(t, a.member, groupID).Total)

	rows := a.history(t, groupID)
	require.Len(t, rows, 3)
	require.Equal(t, domain.HistoryWithdrawal, rows[0].Type) // newest first
	require.Equal(t, domain.Amount(50000), rows[0].Amount)
	require.Equal(t, domain.HistoryDeposit, rows[1].Type)
	require.Equal(t, domain.Amount(950_000), rows[1].Amount)

	// Member cannot override
	w = a.do("PUT", "/admin/savings", a.member, gin.H{"group_id": groupID, "total_amount": 99999, "note": "hack"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, domain.Amount(950_000), a.savings(t, a.member, groupID).Total)

	// Zero amount names the field
	w = a.do("POST", "/admin/payments", a.admin, gin.H{"user_id": memberID, "amount": 0, "month": "June 2024", "due_date": "2024-06-10"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"field":"amount"`)

	// Too many decimals never reaches the ledger
	w = a.do("POST", "/admin/payments", a.admin, gin.H{"user_id": memberID, "amount": "1.005", "month": "June 2024", "due_date": "2024-06-10"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Caller's own group is the default
	w = a.do("GET", "/savings", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":9500.00`)
}

func TestUpdatePaymentOverHTTP(t *testing.T) {
	a := setupRouterWithDB(t)
	groupID := a.group(t)

	w := a.do("POST", "/admin/payments", a.admin, gin.H{
		"user_id": a.ids["member@example.com"], "amount": 300, "month": "July 2024", "due_date": "2024-07-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decodePayment(t, w)
	require.Equal(t, domain.PaymentPending, payment.Status)
	path := "/admin/payments/" + strconv.Itoa(int(payment.ID))

	w = a.do("PATCH", path, a.admin, gin.H{"status": "completed", "payment_method": "bKash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decodePayment(t, w).IsPaid)
	require.Equal(t, domain.Amount(30000), a.savings(t, a.admin, groupID).Total)

	w = a.do("PATCH", path, a.admin, gin.H{"amount": 400})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do("PATCH", path, a.admin, gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, domain.Amount(0), a.savings(t, a.admin, groupID).Total)

	w = a.do("PATCH", path, a.admin, gin.H{"due_date": "10/07/2024"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusNotFound, a.do("PATCH", "/admin/payments/999", a.admin, gin.H{}).Code)
	require.Equal(t, http.StatusBadRequest, a.do("DELETE", "/admin/payments/abc", a.admin, nil).Code)

	// Own and admin listings
	w = a.do("GET", "/payments", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":1`)
	w = a.do("GET", "/admin/payments?status=completed", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":0`)
}

func TestMembersStanding(t *testing.T) {
	a := setupRouterWithDB(t)
	a.group(t)
	memberID := a.ids["member@example.com"]
	now := time.Now()

	for _, p := range []gin.H{
		{"user_id": memberID, "amount": 500, "month": now.Format("January 2006"), "due_date": "2024-05-10", "payment_date": "2024-05-05"},
		{"user_id": memberID, "amount": 250, "month": "Older", "due_date": "2024-01-10", "payment_date": "2024-01-05"},
		{"user_id": memberID, "amount": 999, "month": "Unpaid", "due_date": "2024-02-10"},
	} {
		require.Equal(t, http.StatusCreated, a.do("POST", "/admin/payments", a.admin, p).Code)
	}

	w := a.do("GET", "/members/"+memberID, a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var one struct {
		Member MemberResponse `json:"member"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	require.True(t, one.Member.IsPaid)
	require.Equal(t, domain.Amount(75000), one.Member.Contributions)

	w = a.do("GET", "/members", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Members []MemberResponse `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Members, 2)
	require.Equal(t, "Admin", list.Members[0].Name)
	require.False(t, list.Members[0].IsPaid)

	require.Equal(t, http.StatusNotFound, a.do("GET", "/members/nobody", a.member, nil).Code)
}

func TestAdminRightsAndMemberRemoval(t *testing.T) {
	a := setupRouterWithDB(t)
	groupID := a.group(t)
	adminID, memberID := a.ids["admin@example.com"], a.ids["member@example.com"]

	require.Equal(t, http.StatusBadRequest, a.do("DELETE", "/admin/members/"+adminID+"/admin", a.admin, nil).Code)

	require.Equal(t, http.StatusOK, a.do("POST", "/admin/members/"+memberID+"/admin", a.admin, nil).Code)
	var rights []domain.AdminRight
	require.NoError(t, a.db.Find(&rights).Error)
	require.Len(t, rights, 1)
	require.Equal(t, adminID, rights[0].GrantedBy)

	// Promoted member now reaches admin routes
	require.Equal(t, http.StatusOK, a.do("GET", "/admin/payments", a.member, nil).Code)
	require.Equal(t, http.StatusOK, a.do("DELETE", "/admin/members/"+memberID+"/admin", a.admin, nil).Code)
	require.Equal(t, http.StatusForbidden, a.do("GET", "/admin/payments", a.member, nil).Code)
	require.Equal(t, http.StatusNotFound, a.do("POST", "/admin/members/ghost/admin", a.admin, nil).Code)

	// Removal keeps history and balance
	w := a.do("POST", "/admin/payments", a.admin, gin.H{
		"user_id": memberID, "amount": 100, "month": "May 2024", "due_date": "2024-05-10", "payment_date": "2024-05-05",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, http.StatusBadRequest, a.do("DELETE", "/admin/members/"+adminID, a.admin, nil).Code)
	require.Equal(t, http.StatusOK, a.do("DELETE", "/admin/members/"+memberID, a.admin, nil).Code)
	require.Equal(t, http.StatusNotFound, a.do("DELETE", "/admin/members/"+memberID, a.admin, nil).Code)

	var n int64
	require.NoError(t, a.db.Model(&domain.Payment{}).Where("user_id = ?", memberID).Count(&n).Error)
	require.Zero(t, n)
	require.Len(t, a.history(t, groupID), 1)
	require.Equal(t, domain.Amount(10000), a.savings(t, a.admin, groupID).Total)
}

func TestProjectsCRUD(t *testing.T) {
	a := setupRouterWithDB(t)

	w := a.do("POST", "/admin/projects", a.admin, gin.H{"title": "Well", "budget": "150000.50", "start_date": "2024-01-01", "end_date": "2024-06-30"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Project domain.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, domain.ProjectUpcoming, created.Project.Status)
	require.Equal(t, domain.Amount(15_000_050), *created.Project.Budget)
	path := "/admin/projects/" + strconv.Itoa(int(created.Project.ID))

	for _, bad := range []struct {
		body  gin.H
		field string
	}{
		{gin.H{"progress": 101}, "progress"},
		{gin.H{"status": "paused"}, "status"},
		{gin.H{"budget": -1}, "budget"},
		{gin.H{"end_date": "2023-12-31"}, "end_date"},
		{gin.H{"title": "  "}, "title"},
	} {
		w = a.do("PUT", path, a.admin, bad.body)
		require.Equal(t, http.StatusBadRequest, w.Code, bad.field)
		require.Contains(t, w.Body.String(), `"field":"`+bad.field+`"`)
	}

	w = a.do("PUT", path, a.admin, gin.H{"status": "ongoing", "progress": 40})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("GET", "/projects?status=ongoing", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"progress":40`)
	require.Equal(t, http.StatusOK, a.do("GET", "/projects/"+strconv.Itoa(int(created.Project.ID)), a.member, nil).Code)

	require.Equal(t, http.StatusForbidden, a.do("DELETE", path, a.member, nil).Code)
	require.Equal(t, http.StatusOK, a.do("DELETE", path, a.admin, nil).Code)
	require.Equal(t, http.StatusNotFound, a.do("DELETE", path, a.admin, nil).Code)

	w = a.do("POST", "/admin/projects", a.admin, gin.H{"caption": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

var otpRe = regexp.MustCompile(`code is: (\d{6})`)

func TestPasswordResetOverHTTP(t *testing.T) {
	a := setupRouterWithDB(t)

	unknown := a.do("POST", "/auth/otp", "", gin.H{"email": "ghost@example.com"})
	known := a.do("POST", "/auth/otp", "", gin.H{"email": "member@example.com"})
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, unknown.Body.String(), known.Body.String())
	require.Len(t, a.mail.sent, 1)

	m := otpRe.FindStringSubmatch(a.mail.sent[0].TextBody)
	require.Len(t, m, 2)

	w := a.do("POST", "/auth/otp/verify", "", gin.H{"email": "member@example.com", "otp": "not-it", "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do("POST", "/auth/otp/verify", "", gin.H{"email": "member@example.com", "otp": m[1], "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	a.signIn(t, "member@example.com", "brand-new-pass")

	w = a.do("POST", "/auth/otp/verify", "", gin.H{"email": "member@example.com", "otp": m[1], "new_password": "again-new-pass"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroups(t *testing.T) {
	a := setupRouterWithDB(t)
	a.group(t)
	require.Equal(t, http.StatusConflict, a.do("POST", "/admin/groups", a.admin, gin.H{"name": "Dreamland"}).Code)
	w := a.do("GET", "/groups", a.member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Dreamland")

	w = a.do("PUT", "/admin/members/"+a.ids["member@example.com"]+"/group", a.admin, gin.H{"group_id": 999})
	require.Equal(t, http.StatusNotFound, w.Code)
	w = a.do("PUT", "/admin/members/"+a.ids["member@example.com"]+"/group", a.admin, gin.H{"group_id": nil})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do("GET", "/savings", a.member, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberRemovalLeavesGroupBalance(t *testing.T) {
	a := setupRouterWithDB(t)
	groupID := a.group(t)
	adminID, memberID := a.ids["admin@example.com"], a.ids["member@example.com"]

	for _, p := range []struct {
		user   string
		amount int
	}{{adminID, 200}, {memberID, 300}} {
		w := a.do("POST", "/admin/payments", a.admin, gin.H{
			"user_id": p.user, "amount": p.amount, "month": "June 2024", "due_date": "2024-06-10", "payment_date": "2024-06-01",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	require.Equal(t, domain.Amount(50000), a.savings(t, a.admin, groupID).Total)

	require.Equal(t, http.StatusOK, a.do("DELETE", "/admin/members/"+memberID, a.admin, nil).Code)

	// The removed member's contribution stays saved while their payment rows go
	var remaining int64
	require.NoError(t, a.db.Model(&domain.Payment{}).
		Where("group_id = ? AND status = ?", groupID, domain.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&remaining).Error)
	require.Equal(t, int64(20000), remaining)
	require.Equal(t, domain.Amount(50000), a.savings(t, a.admin, groupID).Total)
	require.Len(t, a.history(t, groupID), 2)
}

func TestOutOfRangeAmountsRejected(t *testing.T) {
	a := setupRouterWithDB(t)
	groupID := a.group(t)

	for _, amount := range []any{json.Number("184467440737095516.17"), "100000000000000000000"} {
		w := a.do("POST", "/admin/payments", a.admin, gin.H{
			"user_id": a.ids["member@example.com"], "amount": amount, "month": "July 2024", "due_date": "2024-07-10", "payment_date": "2024-07-01",
		})
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

		w = a.do("PUT", "/admin/savings", a.admin, gin.H{"group_id": groupID, "total_amount": amount})
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
	var n int64
	require.NoError(t, a.db.Model(&domain.Payment{}).Count(&n).Error)
	require.Zero(t, n)
	require.Equal(t, domain.Amount(0), a.savings(t, a.admin, groupID).Total)
}
