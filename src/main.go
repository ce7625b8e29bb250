package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"sisaplus/src/boot"
	"sisaplus/src/config"
	"sisaplus/src/core"
	"sisaplus/src/lib"
	"sisaplus/src/middlewares"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"sisaplus/src/types"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

const (
	apiPrefix string = "/api/v1"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

var (
	eng     *core.Engine
	gateway store.Gateway
)

// setupEngine wires the shared engine and gateway used by the route groups.
func setupEngine(g store.Gateway, d core.Dispatcher, cache *redis.Client) {
	gateway = g
	eng = core.New(g, d, cache)
}

var bookableDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	if ok {
		today := time.Now()
		if today.After(datetime) {
			return false
		}
	}
	return true
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func generateJWT(user *models.User) (string, error) {
	claims := &types.Claims{
		Username: user.Email,
		UID:      user.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	if os.Getenv("SECRETS_DIR") != "" {
		// Mobile clients sign up with a Firebase ID token; the verified
		// UID is carried onto the account.
		guest.Use(middlewares.VerifyIdToken)
	}
	guest.
		POST("/register", func(ctx *gin.Context) {
			var body types.RegisterUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if existing, err := gateway.GetUserByEmail(ctx, body.Email); err == nil && existing != nil {
				ctx.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			uid := ctx.GetString("uid")
			if uid == "" {
				uid = uuid.NewString()
			}
			user := &models.User{
				Name:  body.Name,
				Email: body.Email,
				UID:   uid,
			}
			if err := gateway.CreateUser(ctx, user); err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			token, err := generateJWT(user)
			if err != nil {
				log.Printf("[AuthRegister] error signing token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
		}).
		POST("/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			user, err := gateway.GetUserByEmail(ctx, body.Email)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					ctx.Status(http.StatusUnauthorized)
					return
				}
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			token, err := generateJWT(user)
			if err != nil {
				log.Printf("[AuthLogin] error signing token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})
	return guest
}

func meRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	me := g.Group("/me")
	me.
		GET("/foods", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			foods, err := eng.ListForDonorOwner(ctx, userId)
			if err != nil {
				respondCoreError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": foods, "count": len(foods)})
		}).
		PUT("/fcm-token", func(ctx *gin.Context) {
			var body types.UpdateFCMTokenRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := gateway.UpdateUserFCMToken(ctx, userId, body.Token); err != nil {
				log.Printf("Error updating FCM token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return me
}

// buildServer assembles the full route surface onto a fresh router. The engine
// and gateway must already be wired via setupEngine.
func buildServer() *gin.Engine {
	router := setupRouter()
	registerValidators()
	router = maintenanceModeMiddleware(router)

	appHost := os.Getenv("APP_HOST")
	if os.Getenv("API_ENV") == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString("app:mobile", origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	guestAuthRoutes(router)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	foodHandlers(authorized)
	bookingHandlers(authorized)
	pickupHandlers(authorized)
	meRoutes(authorized)

	return router
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}

	gormStore := store.NewGormStore(boot.InitDb())

	var dispatcher core.Dispatcher = core.NopDispatcher{}
	if os.Getenv("SECRETS_DIR") != "" {
		dispatcher = core.NewFCMDispatcher(gormStore)
	}
	setupEngine(gormStore, dispatcher, lib.GetRedisClient())

	go lib.TestRedis()

	router := buildServer()

	boot.InitScheduler(eng)
	defer boot.StopScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
