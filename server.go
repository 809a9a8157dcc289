package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/chasinhq/chasin_backend/config"
	"github.com/chasinhq/chasin_backend/middlewares"
	"github.com/chasinhq/chasin_backend/models"
	"github.com/chasinhq/chasin_backend/quickbooks"
	"github.com/chasinhq/chasin_backend/reminders"
	"github.com/chasinhq/chasin_backend/utils"
	"github.com/chasinhq/chasin_backend/workflow"
)

const defaultPort = "3000"

var tracer = otel.Tracer("chasin-backend")

type app struct {
	db     *gorm.DB
	runner *workflow.Runner
}

// PubSubPushEnvelope is the push-delivery wrapper Cloud Pub/Sub wraps around
// a message when a push subscription targets an HTTP endpoint.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	db := config.ConnectDatabaseWithRetry()
	if err := models.Migrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	a := &app{
		db:     db,
		runner: workflow.NewRunner(db, reminders.NewSMTPMailer(), config.NewRedisLocker()),
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.router(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("Chasin API running on port %s", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}

func (a *app) router() *gin.Engine {
	r := gin.Default()

	frontendOrigin := os.Getenv("FRONTEND_ORIGIN")
	if frontendOrigin == "" {
		frontendOrigin = "http://localhost:5173"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middlewares.AuthMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	r.GET("/health/db", a.healthDB)

	r.POST("/auth/login", a.login)
	r.POST("/auth/signup", a.signup)

	r.POST("/jobs/daily", a.runDailyJob)
	r.POST("/webhooks/stripe", a.stripeWebhook)

	r.GET("/integrations/quickbooks/connect", a.quickbooksConnect)
	r.GET("/integrations/quickbooks/callback", a.quickbooksCallback)

	authed := r.Group("/", middlewares.RequireAuth())
	authed.GET("/me", a.me)
	authed.GET("/profile", a.profile)
	authed.GET("/invoices", a.listInvoices)
	authed.POST("/invoices/sync", a.syncInvoices)
	authed.GET("/rules", a.listRules)
	authed.GET("/rules/data", a.ruleData)
	authed.POST("/rules/save", a.saveRule)
	authed.POST("/customers/sync", a.syncCustomers)

	return r
}

func (a *app) healthDB(c *gin.Context) {
	var ids []string
	err := a.db.WithContext(c.Request.Context()).
		Model(&models.User{}).Select("id").Limit(1).Find(&ids).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AUTH ROUTES //

func (a *app) login(c *gin.Context) {
	var input models.NewLogin
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}

	_, token, err := models.LoginUser(c.Request.Context(), a.db, &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *app) signup(c *gin.Context) {
	var input models.NewSignup
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}

	account, user, token, err := models.CreateAccountAndUser(c.Request.Context(), a.db, &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "user": user, "token": token})
}

func (a *app) me(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	user, err := models.GetUserById(c.Request.Context(), a.db, claims.UserId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *app) profile(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	account, err := models.GetAccountById(c.Request.Context(), a.db, claims.AccountId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// CRON ROUTES //

// runDailyJob accepts both a direct POST (operator/cron) and a Pub/Sub push
// delivery (Cloud Scheduler publishes to a topic whose push subscription
// targets this route).
func (a *app) runDailyJob(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	var envelope PubSubPushEnvelope
	isPush := len(body) > 0 && json.Unmarshal(body, &envelope) == nil && envelope.Subscription != ""

	ctx, span := tracer.Start(c.Request.Context(), "RunDailyInvoiceCheck")
	defer span.End()

	if !a.runner.RunDailyInvoiceCheck(ctx) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run daily job"})
		return
	}
	if isPush {
		// 2xx acks the Pub/Sub delivery.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// STRIPE ROUTES //

// stripeWebhook acknowledges billing events; subscription handling lives in
// the billing service, this backend only needs to not lose the delivery.
func (a *app) stripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook error")
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module": "server",
		"bytes":  len(body),
	}).Info("stripe webhook received")
	c.String(http.StatusOK, "Webhook received")
}

// QUICKBOOKS ROUTES //

func (a *app) quickbooksConnect(c *gin.Context) {
	clientId := os.Getenv("QB_CLIENT_ID")
	redirectUri := os.Getenv("APP_URL") + "/integrations/quickbooks/callback"
	scope := "com.intuit.quickbooks.accounting"

	// The account id rides through the OAuth round trip as state.
	state := uuid.NewString()
	if claims := middlewares.CtxValue(c.Request.Context()); claims != nil {
		state = claims.AccountId
	}

	authUrl := "https://appcenter.intuit.com/connect/oauth2" +
		"?client_id=" + url.QueryEscape(clientId) +
		"&response_type=code" +
		"&scope=" + url.QueryEscape(scope) +
		"&redirect_uri=" + url.QueryEscape(redirectUri) +
		"&state=" + url.QueryEscape(state)

	c.Redirect(http.StatusFound, authUrl)
}

func (a *app) quickbooksCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	realmId := c.Query("realmId")
	if code == "" || state == "" || realmId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code, state, or realmId"})
		return
	}

	accessToken, refreshToken, err := exchangeQuickBooksCode(c.Request.Context(), code)
	if err != nil {
		config.LogError(config.GetLogger(), "server", "quickbooksCallback", "token exchange", state, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	integration, err := models.ConnectIntegration(
		c.Request.Context(), a.db, state, models.IntegrationProviderQuickBooks,
		accessToken, refreshToken, realmId,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "integration": integration})
}

// exchangeQuickBooksCode swaps the OAuth authorization code for tokens.
func exchangeQuickBooksCode(ctx context.Context, code string) (string, string, error) {
	tokenUrl := os.Getenv("QB_TOKEN_URL")
	if tokenUrl == "" {
		tokenUrl = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", os.Getenv("APP_URL")+"/integrations/quickbooks/callback")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.SetBasicAuth(os.Getenv("QB_CLIENT_ID"), os.Getenv("QB_CLIENT_SECRET"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", errors.New("quickbooks token exchange failed: " + strings.TrimSpace(string(body)))
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", "", err
	}
	return tokens.AccessToken, tokens.RefreshToken, nil
}

// INVOICE ROUTES //

func (a *app) listInvoices(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	invoices, err := models.ListInvoices(c.Request.Context(), a.db, claims.AccountId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (a *app) syncInvoices(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	if quickbooks.SyncInvoicesForAccount(c.Request.Context(), a.db, claims.AccountId) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Invoices synced successfully"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "No active QuickBooks integration or failed to sync"})
}

// RULES ROUTES //

func (a *app) listRules(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	rules, err := models.ListRules(c.Request.Context(), a.db, claims.AccountId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (a *app) ruleData(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing rule id"})
		return
	}

	rule, err := models.GetRule(c.Request.Context(), a.db, claims.AccountId, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rule data"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (a *app) saveRule(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())

	var input models.NewReminderRule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": utils.ProcessValidationErrors(err)})
		return
	}

	rule, err := models.SaveRule(c.Request.Context(), a.db, claims.AccountId, c.Query("id"), &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to save rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rule": rule})
}

// CUSTOMER ROUTES //

func (a *app) syncCustomers(c *gin.Context) {
	claims := middlewares.CtxValue(c.Request.Context())
	if quickbooks.SyncCustomersForAccount(c.Request.Context(), a.db, claims.AccountId) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Customers synced successfully"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "No active QuickBooks integration or failed to sync"})
}
