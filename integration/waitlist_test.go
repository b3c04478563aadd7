package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/config"
	"github.com/vistaforge/waitlist-api/config/router"
	"github.com/vistaforge/waitlist-api/domain"
	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
)

const (
	testExportToken = "export-secret"
	testAdminToken  = "admin-secret"
)

type WaitlistAPITestSuite struct {
	suite.Suite
	db        *gorm.DB
	server    *httptest.Server
	baseURL   string
	logger    *log.Logger
	appConfig *config.ApplicationConfig
}

func (suite *WaitlistAPITestSuite) SetupSuite() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.WaitlistEntry{})
	suite.Require().NoError(err)

	suite.logger = log.NewLoggerWithJSONOutput()

	appCfg := config.NewAppConfig()
	appCfg.ExportToken = testExportToken
	appCfg.AdminToken = testAdminToken

	suite.appConfig = &config.ApplicationConfig{
		DB:     suite.db,
		Logger: suite.logger,
		Config: appCfg,
	}

	suite.appConfig.RouterService = router.CreateRouterService(suite.logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    30 * time.Second,
	})

	domain.SetupCoreDomain(suite.appConfig)

	suite.server = httptest.NewServer(suite.appConfig.RouterService.GetEngine())
	suite.baseURL = suite.server.URL
}

func (suite *WaitlistAPITestSuite) TearDownSuite() {
	if suite.server != nil {
		suite.server.Close()
	}
	if suite.db != nil {
		sqlDB, _ := suite.db.DB()
		sqlDB.Close()
	}
}

func (suite *WaitlistAPITestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM waitlist_entries")
}

// postJSON issues a POST with a per-test forwarded address so each test
// draws from its own signup rate-limit bucket.
func (suite *WaitlistAPITestSuite) postJSON(path, clientAddress string, body any) *http.Response {
	jsonBody, err := json.Marshal(body)
	suite.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, suite.baseURL+path, bytes.NewBuffer(jsonBody))
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", clientAddress)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	return resp
}

func (suite *WaitlistAPITestSuite) getWithToken(path, token string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, suite.baseURL+path, nil)
	suite.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)

	return resp
}

func (suite *WaitlistAPITestSuite) decode(resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()

	var response map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&response)
	suite.Require().NoError(err)

	return response
}

func (suite *WaitlistAPITestSuite) TestHealthCheck() {
	resp, err := http.Get(suite.baseURL + "/health")
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(true, response["ok"])
	suite.Contains(response["message"], "health check completed")

	health := response["health"].(map[string]interface{})
	suite.Equal(float64(1), health["database"])
	suite.Contains(health, "uptime")
}

func (suite *WaitlistAPITestSuite) TestSignupIsIdempotent() {
	body := map[string]string{"email": "Jane.Doe@Example.com", "name": "Jane Doe"}

	resp := suite.postJSON("/v1/waitlist", "203.0.113.10", body)
	suite.Equal(http.StatusOK, resp.StatusCode)

	first := suite.decode(resp)
	suite.Equal(true, first["ok"])
	suite.Contains(first["message"], "you are on the waitlist")
	suite.NotContains(first, "alreadyExists")
	firstID := first["id"].(string)
	suite.NotEmpty(firstID)

	resp = suite.postJSON("/v1/waitlist", "203.0.113.10", body)
	suite.Equal(http.StatusOK, resp.StatusCode)

	second := suite.decode(resp)
	suite.Equal(true, second["ok"])
	suite.Equal(true, second["alreadyExists"])
	suite.Contains(second["message"], "already on the waitlist")
	suite.Equal(firstID, second["id"])

	var count int64
	suite.db.Model(&models.WaitlistEntry{}).Count(&count)
	suite.Equal(int64(1), count)

	var entry models.WaitlistEntry
	suite.Require().NoError(suite.db.First(&entry).Error)
	suite.Equal("jane.doe@example.com", entry.Email)
	suite.Equal("landing_page", entry.Source)
	suite.Equal("direct", entry.Referrer)
}

func (suite *WaitlistAPITestSuite) TestSignupMissingEmail() {
	resp := suite.postJSON("/v1/waitlist", "203.0.113.11", map[string]string{"name": "No Email"})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(false, response["ok"])
	suite.Equal("Email is required", response["error"])
}

func (suite *WaitlistAPITestSuite) TestSignupInvalidEmail() {
	resp := suite.postJSON("/v1/waitlist", "203.0.113.12", map[string]string{"email": "not-an-email"})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(false, response["ok"])
	suite.Equal("Please provide a valid email address", response["error"])
}

func (suite *WaitlistAPITestSuite) TestSignupRateLimited() {
	const clientAddress = "203.0.113.13"

	for i := 0; i < 5; i++ {
		resp := suite.postJSON("/v1/waitlist", clientAddress, map[string]string{
			"email": "ratelimit" + string(rune('a'+i)) + "@example.com",
		})
		suite.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := suite.postJSON("/v1/waitlist", clientAddress, map[string]string{
		"email": "ratelimit-overflow@example.com",
	})
	suite.Equal(http.StatusTooManyRequests, resp.StatusCode)
	suite.NotEmpty(resp.Header.Get("Retry-After"))

	response := suite.decode(resp)
	suite.Equal(false, response["ok"])
	suite.Equal("Too many requests. Please try again later.", response["error"])

	// Another client is unaffected by the exhausted bucket.
	other := suite.postJSON("/v1/waitlist", "203.0.113.14", map[string]string{
		"email": "other-client@example.com",
	})
	suite.Equal(http.StatusOK, other.StatusCode)
	other.Body.Close()
}

func (suite *WaitlistAPITestSuite) TestSecureSignupValidation() {
	resp := suite.postJSON("/v1/waitlist/secure", "203.0.113.15", map[string]any{
		"email": "secure@example.com",
		"role":  "astronaut",
	})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(false, response["ok"])
	suite.Equal("Validation failed", response["error"])

	details := response["details"].([]interface{})
	suite.NotEmpty(details)
}

func (suite *WaitlistAPITestSuite) TestSecureSignupSuccess() {
	resp := suite.postJSON("/v1/waitlist/secure", "203.0.113.16", map[string]any{
		"email":            "agent@example.com",
		"role":             "real_estate_agent",
		"company":          "Acme Estates",
		"monthly_listings": 12,
	})
	suite.Equal(http.StatusOK, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(true, response["ok"])
	suite.Equal("Successfully joined the waitlist", response["message"])

	var entry models.WaitlistEntry
	suite.Require().NoError(suite.db.First(&entry).Error)
	suite.Equal("secure_signup", entry.Source)
	suite.Equal(models.RoleRealEstateAgent, entry.Role)
}

func (suite *WaitlistAPITestSuite) TestExportRequiresToken() {
	resp := suite.getWithToken("/v1/waitlist/export", "")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = suite.getWithToken("/v1/waitlist/export", "wrong-token")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(false, response["ok"])
	suite.Equal("Unauthorized", response["error"])
}

func (suite *WaitlistAPITestSuite) seedEntries(emails ...string) {
	for _, email := range emails {
		entry := models.WaitlistEntry{
			Email:  email,
			Role:   models.RoleInvestor,
			Source: "landing_page",
		}
		suite.Require().NoError(suite.db.Create(&entry).Error)
	}
}

func (suite *WaitlistAPITestSuite) TestExportCSV() {
	suite.seedEntries("csv1@example.com", "csv2@example.com")

	resp := suite.getWithToken("/v1/waitlist/export", testExportToken)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(resp.Header.Get("Content-Type"), "text/csv")
	suite.Contains(resp.Header.Get("Content-Disposition"), `filename="waitlist.csv"`)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	suite.Len(lines, 3)
	suite.Equal("id,created_at,name,email,role,source,referrer,user_agent,ip", strings.TrimSpace(lines[0]))
	suite.Contains(string(raw), "csv1@example.com")
	suite.Contains(string(raw), "csv2@example.com")
}

func (suite *WaitlistAPITestSuite) TestExportJSON() {
	suite.seedEntries("json1@example.com")

	resp := suite.getWithToken("/v1/waitlist/export?format=json", testExportToken)
	suite.Equal(http.StatusOK, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(true, response["ok"])
	suite.Equal(float64(1), response["count"])
	suite.Equal(float64(0), response["offset"])
	suite.Equal(float64(1000), response["limit"])

	data := response["data"].([]interface{})
	suite.Len(data, 1)
	entry := data[0].(map[string]interface{})
	suite.Equal("json1@example.com", entry["email"])
}

func (suite *WaitlistAPITestSuite) TestAdminStats() {
	suite.seedEntries("stats1@example.com", "stats2@example.com")

	resp := suite.getWithToken("/v1/admin/waitlist", testAdminToken)
	suite.Equal(http.StatusOK, resp.StatusCode)

	response := suite.decode(resp)
	suite.Equal(true, response["ok"])

	data := response["data"].(map[string]interface{})
	suite.Equal(float64(2), data["total"])

	byRole := data["byRole"].(map[string]interface{})
	suite.Equal(float64(2), byRole[models.RoleInvestor])
}

func (suite *WaitlistAPITestSuite) TestAdminRejectsExportToken() {
	resp := suite.getWithToken("/v1/admin/waitlist", testExportToken)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestWaitlistAPISuite(t *testing.T) {
	// Skip integration tests unless explicitly requested
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests. Set RUN_INTEGRATION_TESTS=true to run them")
	}

	suite.Run(t, new(WaitlistAPITestSuite))
}
