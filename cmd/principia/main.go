// Command principia is the terminal study client for Princípia Matemática,
// plus the offline devserver it talks to by default.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/config"
	"github.com/principia-matematica/estudo/internal/content"
	"github.com/principia-matematica/estudo/internal/localdata"
	"github.com/principia-matematica/estudo/internal/logging"
	"github.com/principia-matematica/estudo/internal/stubserver"
	"github.com/principia-matematica/estudo/internal/ui/app"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:           "principia",
		Short:         "Cliente de estudo do Princípia Matemática",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "endereço do backend")
	root.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "diretório de dados locais")
	root.PersistentFlags().StringVar(&cfg.LogMode, "log-mode", cfg.LogMode, "modo de log (dev|prod)")

	root.AddCommand(loginCmd(&cfg), coursesCmd(&cfg), studyCmd(&cfg),
		checkinCmd(&cfg), watchCmd(&cfg), devserverCmd(&cfg))
	return root
}

/* ---------------- tui ---------------- */

func runTUI(ctx context.Context, cfg config.Config, opts ...app.Option) error {
	log, err := logging.NewFile(cfg.LogMode, filepath.Join(cfg.DataDir, "principia.log"))
	if err != nil {
		return err
	}
	defer log.Sync()

	local, err := localdata.Open(ctx, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("abrir cache local: %w", err)
	}
	defer local.Close()

	client := api.NewClient(cfg.APIBaseURL,
		api.WithLogger(log.With("component", "api")),
		api.WithToken(local.AccessToken()))
	if client.TokenExpired(time.Now()) {
		return errors.New("sessão expirada — rode `principia login` primeiro")
	}

	browser := content.New(client, local, content.WithLogger(log.With("component", "content")))

	model, err := app.NewModel(
		catalogBridge{client: client, browser: browser},
		client,
		client,
		local,
		local,
		cfg.KeymapPath,
		opts...,
	)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// catalogBridge joins the API client's catalog call with the content
// browser's cached course state into the single port the courses view wants.
type catalogBridge struct {
	client  *api.Client
	browser *content.Browser
}

func (b catalogBridge) Courses(ctx context.Context) ([]api.Course, error) {
	return b.client.Courses(ctx)
}
func (b catalogBridge) LoadCourse(ctx context.Context, courseID string) error {
	return b.browser.LoadCourse(ctx, courseID)
}
func (b catalogBridge) Modules() []api.Module    { return b.browser.Modules() }
func (b catalogBridge) Profile() api.Profile     { return b.browser.Profile() }
func (b catalogBridge) Reset()                   { b.browser.Reset() }
func (b catalogBridge) MarkVideoCompleted(ctx context.Context, videoID string, atSecond int) error {
	return b.browser.MarkVideoCompleted(ctx, videoID, atSecond)
}

/* ---------------- login ---------------- */

func loginCmd(cfg *config.Config) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Entra com email e senha e guarda o token de acesso",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reader := bufio.NewReader(cmd.InOrStdin())

			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "email: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				email = strings.TrimSpace(line)
			}
			fmt.Fprint(cmd.OutOrStdout(), "senha: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			password := strings.TrimRight(line, "\r\n")

			client := api.NewClient(cfg.APIBaseURL)
			token, err := client.Login(ctx, email, password)
			if err != nil {
				if errors.Is(err, api.ErrSessionExpired) {
					return errors.New("credenciais inválidas")
				}
				return err
			}

			local, err := localdata.Open(ctx, cfg.DataDir)
			if err != nil {
				return err
			}
			defer local.Close()
			local.SetAccessToken(token)

			fmt.Fprintln(cmd.OutOrStdout(), "login feito — bom estudo!")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email da conta")
	return cmd
}

/* ---------------- courses & study ---------------- */

func coursesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "Lista os cursos e suas listas de questões",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			local, err := localdata.Open(ctx, cfg.DataDir)
			if err != nil {
				return err
			}
			defer local.Close()

			client := api.NewClient(cfg.APIBaseURL, api.WithToken(local.AccessToken()))
			courses, err := client.Courses(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range courses {
				fmt.Fprintf(out, "%s  %s\n", c.ID, c.Name)
				modules, err := client.CourseModules(ctx, c.ID)
				if err != nil {
					return err
				}
				for _, m := range modules {
					fmt.Fprintf(out, "  %s\n", m.Name)
					for _, v := range m.Videos {
						done := " "
						if v.Completed {
							done = "✓"
						}
						fmt.Fprintf(out, "    [%s] vídeo  %s  %s\n", done, v.ID, v.Title)
					}
					for _, lid := range m.ListIDs {
						fmt.Fprintf(out, "    [ ] lista  %s\n", lid)
					}
				}
			}
			return nil
		},
	}
}

func studyCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "study <list-id>",
		Short: "Abre uma lista de questões direto no modo de estudo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *cfg, app.WithInitialList(args[0], args[0]))
		},
	}
}

/* ---------------- checkin ---------------- */

func checkinCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Registra o check-in diário",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			local, err := localdata.Open(ctx, cfg.DataDir)
			if err != nil {
				return err
			}
			defer local.Close()

			if local.CheckedInToday(time.Now()) {
				fmt.Fprintln(cmd.OutOrStdout(), "check-in de hoje já está registrado")
				return nil
			}

			client := api.NewClient(cfg.APIBaseURL, api.WithToken(local.AccessToken()))
			res, err := client.CheckIn(ctx)
			if err != nil {
				return err
			}
			local.MarkCheckedIn(time.Now())
			if res.AlreadyChecked {
				fmt.Fprintln(cmd.OutOrStdout(), "check-in de hoje já estava registrado")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "check-in feito — sequência de %d dias\n", res.StreakDays)
			}
			return nil
		},
	}
}

/* ---------------- watch ---------------- */

func watchCmd(cfg *config.Config) *cobra.Command {
	var seconds int
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <video-id>",
		Short: "Simula a reprodução de um vídeo, reportando o progresso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			local, err := localdata.Open(ctx, cfg.DataDir)
			if err != nil {
				return err
			}
			defer local.Close()

			log, err := logging.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()

			client := api.NewClient(cfg.APIBaseURL, api.WithToken(local.AccessToken()))
			browser := content.New(client, local, content.WithLogger(log))

			videoID := args[0]
			start := time.Now()
			fmt.Fprintf(cmd.OutOrStdout(), "assistindo %s por %ds (ctrl+c para parar)\n", videoID, seconds)
			browser.RunHeartbeat(ctx, videoID, func() (int, bool) {
				elapsed := int(time.Since(start) / time.Second)
				return elapsed, elapsed >= seconds
			}, interval)
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", 60, "duração simulada até a conclusão")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "intervalo entre batidas")
	return cmd
}

/* ---------------- devserver ---------------- */

func devserverCmd(cfg *config.Config) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Sobe o backend de desenvolvimento local",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log, err := logging.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := stubserver.OpenDB(ctx, stubserver.Driver(cfg.DBDriver), cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("abrir banco: %w", err)
			}
			defer db.Close()

			store := stubserver.NewSQLStore(db)
			if seed {
				if err := stubserver.Seed(ctx, store); err != nil {
					return fmt.Errorf("popular banco: %w", err)
				}
				log.Info("banco populado", "email", stubserver.DemoEmail)
			}

			authSvc := stubserver.NewAuthService(cfg.AuthSecret)
			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           stubserver.NewRouter(store, authSvc, cfg.CORSOrigins),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("devserver no ar", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", cfg.SeedOnStart, "popular o banco com o curso de demonstração")
	return cmd
}
