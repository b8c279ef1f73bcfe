package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/AdMarket/app/repository"
	"github.com/ManuelReschke/AdMarket/internal/pkg/auth"
	"github.com/ManuelReschke/AdMarket/internal/pkg/billing"
	"github.com/ManuelReschke/AdMarket/internal/pkg/cache"
	"github.com/ManuelReschke/AdMarket/internal/pkg/constants"
	"github.com/ManuelReschke/AdMarket/internal/pkg/database"
	"github.com/ManuelReschke/AdMarket/internal/pkg/env"
	"github.com/ManuelReschke/AdMarket/internal/pkg/objectstore"
	"github.com/ManuelReschke/AdMarket/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AdMarket/internal/pkg/router"
	"github.com/ManuelReschke/AdMarket/internal/pkg/upload"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	signer, err := auth.NewSignerFromEnv()
	if err != nil {
		log.Fatalf("auth setup: %v", err)
	}

	storeCfg, err := objectstore.LoadConfig()
	if err != nil {
		log.Fatalf("object store config: %v", err)
	}
	store, err := objectstore.New(context.Background(), storeCfg)
	if err != nil {
		log.Fatalf("object store setup: %v", err)
	}

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/admarket to project root
		"../../../", // Fallback
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			basePath = path
			break
		}
	}

	uploadMax := int64(env.GetEnvInt("UPLOAD_MAX_BYTES", upload.MaxProofSize))
	app := fiber.New(fiber.Config{
		// leave headroom for the multipart envelope around the proof
		BodyLimit: int(uploadMax) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: constants.DocsBasePath,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	repos := repository.GetGlobalRepositories()
	router.InstallRouter(app, router.Dependencies{
		Payments:  billing.NewServiceFromDB(database.GetDB(), cache.NewLocker(nil)),
		Uploads:   upload.NewService(store, repos.UploadFile, uploadMax),
		Cache:     cache.JSONStore{},
		Tokens:    signer,
		Users:     repos.User,
		RateLimit: ratelimit.FromEnv(ratelimit.NewStorage()),
	})

	return app
}
