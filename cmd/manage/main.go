// Command manage runs administrative tasks against the blog database.
//
//	manage migrate
//	manage creategroup --title "Cats" --slug cats --description "All about cats"
//	manage createuser --username leo --email leo@example.com --password s3cretpass
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anonto42/yatube/backend/internal/forms"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/pkg/config"
	"github.com/anonto42/yatube/backend/pkg/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: manage <migrate|creategroup|createuser> [flags]\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	cfg.MongoURI, cfg.RedisURL = "", ""

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "migrate":
		err = db.Migrate()
	case "creategroup":
		err = createGroup(ctx, db.Postgres, args)
	case "createuser":
		err = createUser(ctx, db.Postgres, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		zlog.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func createGroup(ctx context.Context, db *gorm.DB, args []string) error {
	fs := pflag.NewFlagSet("creategroup", pflag.ContinueOnError)
	title := fs.String("title", "", "group title")
	slug := fs.String("slug", "", "unique URL slug")
	description := fs.String("description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" || *slug == "" {
		return errors.New("--title and --slug are required")
	}

	group := &models.Group{Title: *title, Slug: *slug, Description: *description}
	if err := repositories.NewPostgresGroupRepository(db).CreateGroup(ctx, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	fmt.Printf("Created group %q (id %d) at /group/%s/\n", group.Title, group.ID, group.Slug)
	return nil
}

func createUser(ctx context.Context, db *gorm.DB, args []string) error {
	fs := pflag.NewFlagSet("createuser", pflag.ContinueOnError)
	username := fs.String("username", "", "unique username")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (at least 8 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res := forms.ValidateSignup(forms.SignupInput{
		Username:        *username,
		Email:           *email,
		Password:        *password,
		PasswordConfirm: *password,
	})
	if !res.Valid() {
		return invalidInput(res.Errors)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(res.Value.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: res.Value.Username, Email: res.Value.Email, Password: string(hash)}
	if err := repositories.NewPostgresUserRepository(db).CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("Created user %q (id %d)\n", user.Username, user.ID)
	return nil
}

// invalidInput maps form errors back to the flags that produced them.
func invalidInput(errs []forms.FieldError) error {
	flags := map[string]string{"password1": "password", "password2": "password"}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		name := fe.Field
		if flag, ok := flags[name]; ok {
			name = flag
		}
		msgs = append(msgs, "--"+name+": "+fe.Message)
	}
	return errors.New(strings.Join(msgs, "; "))
}
