// Command miniapp runs the client sign-in flow from a terminal. Init data is
// taken from the environment in place of the Mini App host.
//
//	miniapp                     start and print the resulting state
//	miniapp login EMAIL PASS    sign in with email and password
//	miniapp signup EMAIL PASS   register with email and password
//	miniapp logout              sign out and forget the stored session
//	miniapp initdata ID NAME    print signed init data for a test user
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/client"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/logging"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		slog.Error("miniapp failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	logging.Setup(cfg.AppEnv)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "initdata" {
		return printInitData(cfg, args[1:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := client.OpenBoltSessionStore(cfg.SessionDB)
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if cfg.CallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1)
	}
	backend := client.NewHTTPBackend(cfg.APIBaseURL, cfg.CallTimeout, limiter)
	auth := client.NewAuth(backend, sessions)
	locator := client.NewLocator(client.NewEnvBridge(cfg.InitDataVar))

	state := client.NewStore()
	state.Subscribe(func(st client.AuthState) {
		slog.Debug("auth state", "phase", string(st.Phase), "loading", st.IsLoading)
	})

	orch := client.NewOrchestrator(state, backend, auth, locator, slog.Default())
	defer orch.Close()

	st := orch.Start(ctx)

	if len(args) > 0 {
		switch args[0] {
		case "login", "signup":
			if len(args) != 3 {
				return fmt.Errorf("usage: miniapp %s EMAIL PASSWORD", args[0])
			}
			if args[0] == "login" {
				err = orch.SignInWithEmailPassword(ctx, args[1], args[2])
			} else {
				err = orch.SignUpWithEmailPassword(ctx, dto.RegisterRequest{Email: args[1], Password: args[2]})
			}
		case "logout":
			err = orch.SignOut(ctx)
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
		if err != nil {
			return err
		}
		st = state.Get()
	}

	return printState(st)
}

func printState(st client.AuthState) error {
	out := struct {
		Phase    client.Phase      `json:"phase"`
		Hosted   bool              `json:"hosted"`
		Identity *dto.UserResponse `json:"identity"`
		Role     *string           `json:"role"`
		Error    *string           `json:"error"`
	}{Phase: st.Phase, Hosted: st.IsHostedEnvironment, Identity: st.Identity}
	if st.Role != "" {
		out.Role = &st.Role
	}
	if st.Err != nil {
		msg := st.Err.Error()
		out.Error = &msg
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printInitData writes a signed payload suitable for TG_INIT_DATA. Only the
// development bot token should ever be used here.
func printInitData(cfg *config.ClientConfig, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: miniapp initdata TELEGRAM_ID FIRST_NAME")
	}
	if cfg.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required to sign init data")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid telegram id %q", args[0])
	}

	user, err := json.Marshal(map[string]interface{}{"id": id, "first_name": args[1]})
	if err != nil {
		return err
	}
	values := url.Values{}
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	fmt.Println(telegram.Sign(values, cfg.BotToken))
	return nil
}
