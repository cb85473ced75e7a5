package router

import (
	"meal-planner/internal/config"
	"meal-planner/internal/handler"
	"meal-planner/internal/logger"
	"meal-planner/internal/middleware"
	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Services bundles the domain services shared by the HTTP layer and the CLI.
type Services struct {
	Users    *service.UserService
	Resolver *service.IngredientResolver
	Meals    *service.MealService
	Planning *service.PlanningService
	Shopping *service.ShoppingService
	Backups  *service.BackupService
}

func NewServices(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Services {
	resolver := service.NewIngredientResolver(db, log, cfg.App.DefaultUnit)
	meals := service.NewMealService(db, log, resolver)
	return &Services{
		Users:    service.NewUserService(db, log, cfg.Security.BcryptCost),
		Resolver: resolver,
		Meals:    meals,
		Planning: service.NewPlanningService(db, log),
		Shopping: service.NewShoppingService(db, log, resolver, cfg.App.ItemDefaultUnit),
		Backups:  service.NewBackupService(db, log, meals, cfg.Backup.Dir),
	}
}

// SetupRouter configures the Gin engine and all /api routes.
func SetupRouter(cfg *config.Config, db *gorm.DB, log *logger.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	svc := NewServices(cfg, db, log)

	// ====== API ======
	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		util.Success(c, util.Response{"status": "ok"})
	})

	// 登录/注册接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(db, log, svc.Users, cfg)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/login", authHandler.Login)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, db),
		middleware.AuditMiddleware(db, log),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", handler.GetMe)
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db, svc.Users))

	ingredientHandler := handler.NewIngredientHandler(svc.Resolver)
	protected.GET("/ingredients", ingredientHandler.ListIngredients)
	protected.POST("/ingredients", ingredientHandler.CreateIngredient)

	mealHandler := handler.NewMealHandler(svc.Meals)
	protected.GET("/meals", mealHandler.ListMeals)
	protected.POST("/meals", mealHandler.CreateMeal)
	protected.GET("/meals/:id", mealHandler.GetMeal)
	protected.PUT("/meals/:id", mealHandler.UpdateMeal)
	protected.DELETE("/meals/:id", mealHandler.DeleteMeal)

	weekMealHandler := handler.NewWeekMealHandler(svc.Planning)
	protected.GET("/week-meals", weekMealHandler.ListWeekMeals)
	protected.POST("/week-meals", weekMealHandler.CreateWeekMeal)
	protected.PATCH("/week-meals/:id", weekMealHandler.UpdateWeekMeal)
	protected.DELETE("/week-meals/:id", weekMealHandler.DeleteWeekMeal)

	// :key 在不同路由中是周一日期或清单 ID
	shoppingHandler := handler.NewShoppingHandler(svc.Shopping)
	exportHandler := handler.NewExportHandler(svc.Shopping)
	protected.GET("/shopping-lists", shoppingHandler.ListShoppingLists)
	sl := protected.Group("/shopping-list")
	sl.POST("/generate/:week", shoppingHandler.Generate)
	sl.GET("/:key", shoppingHandler.GetByWeek)
	sl.GET("/:key/export.csv", exportHandler.ExportCSV)
	sl.GET("/:key/export.xlsx", exportHandler.ExportXLSX)
	sl.POST("/:key/save", shoppingHandler.Save)
	sl.POST("/:key/item", shoppingHandler.AddItem)
	sl.PUT("/item/:id", shoppingHandler.EditItem)
	sl.PATCH("/item/:id/toggle", shoppingHandler.ToggleItem)
	sl.DELETE("/item/:id", shoppingHandler.DeleteItem)

	backupHandler := handler.NewBackupHandler(svc.Backups)
	protected.POST("/backups", backupHandler.CreateBackup)
	protected.GET("/backups", backupHandler.ListBackups)
	protected.GET("/backups/:id/download", backupHandler.DownloadBackup)
	protected.POST("/backups/:id/restore", backupHandler.RestoreBackup)
	protected.DELETE("/backups/:id", backupHandler.DeleteBackup)

	logHandler := handler.NewLogHandler(db, cfg.App.PageSize)
	protected.GET("/logs", logHandler.ListLogs)

	return r
}
