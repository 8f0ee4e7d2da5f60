package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Interviews *InterviewHandler
	Sessions   *SessionHandler
	Directory  *DirectoryHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Healthz(w, r)
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sessions.Resolve(w, r)
		})
		mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sessions.Chat(w, r)
		})
	}

	if cfg.Interviews != nil {
		mux.HandleFunc("/interviews", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Interviews.Schedule(w, r)
		})
		mux.HandleFunc("/interviews/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath(r.URL.Path, "/interviews/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithInterviewID(r.Context(), id))
			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Interviews.Status(w, r)
			case "record":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Interviews.Record(w, r)
			case "flag":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Interviews.Flag(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/subjects/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath(r.URL.Path, "/subjects/")
			if !ok || action != "interviews" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Interviews.ListBySubject(w, r.WithContext(ContextWithSubjectID(r.Context(), id)))
		})
	}

	if cfg.Directory != nil {
		mux.HandleFunc("/subjects", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Directory.CreateSubject(w, r)
		})
		mux.HandleFunc("/exit-requests", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Directory.CreateExitRequest(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitResourcePath splits "/prefix/{id}[/{action}]" into its id and action.
func splitResourcePath(path, prefix string) (id, action string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		return parts[0], parts[1], true
	}
	return "", "", false
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
