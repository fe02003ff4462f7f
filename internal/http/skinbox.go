package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mono83/slf"
	"github.com/thedevsaddam/govalidator"

	"ely.by/skinbox/internal/identity"
	"ely.by/skinbox/internal/textures"
)

const maxMultipartMemory int64 = 1 << 20

const DefaultMaxUploadSize int64 = 10 << 20

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

func init() {
	govalidator.AddCustomRule("identity", func(field string, rule string, message string, value interface{}) error {
		str, _ := value.(string)
		// Emptiness is reported by the "required" rule
		if strings.TrimSpace(str) == "" {
			return nil
		}

		_, err := identity.Normalize(str)
		if err == nil {
			return nil
		}

		if message != "" {
			return errors.New(message)
		}

		var identityErr *identity.InvalidIdentityError
		if errors.As(err, &identityErr) {
			return fmt.Errorf("The %s field is invalid: %s", field, identityErr.Reason)
		}

		return err
	})
}

type TexturesUploader interface {
	Store(ctx context.Context, rawIdentity string, kind textures.Kind, content io.Reader) (*textures.StoredAsset, error)
}

type GalleryLister interface {
	ListEntries(ctx context.Context) ([]*textures.GalleryEntry, error)
}

type AssetFinder interface {
	Find(ctx context.Context, kind textures.Kind, identity string) (*textures.Asset, error)
}

type SkinBox struct {
	TexturesUploader
	GalleryLister
	AssetFinder
	Logger slf.Logger
	// PublicUrl is used to build absolute links. When empty, it's derived from each request
	PublicUrl     string
	MaxUploadSize int64
	LoaderName    string
}

func (s *SkinBox) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
	router.HandleFunc("/upload", s.uploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/gallery", s.galleryHandler).Methods(http.MethodGet)
	router.HandleFunc("/gallery.{format:json}", s.galleryHandler).Methods(http.MethodGet)
	router.HandleFunc("/uploads/{kind:(?:skins|capes)}/{identity}.png", s.textureHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/uploads/{kind:(?:skins|capes)}/{identity}.png", s.texturePreflightHandler).Methods(http.MethodOptions)
	router.HandleFunc("/CustomSkinLoader.json", s.customSkinLoaderHandler).Methods(http.MethodGet)
	router.HandleFunc("/health-check", s.healthCheckHandler).Methods(http.MethodGet)

	return router
}

func (s *SkinBox) indexHandler(resp http.ResponseWriter, req *http.Request) {
	s.renderPage(resp, http.StatusOK, "index.html", nil)
}

type uploadedTexture struct {
	Kind  textures.Kind `json:"kind"`
	Title string        `json:"-"`
	Url   string        `json:"url"`
}

type uploadResult struct {
	Username string              `json:"username,omitempty"`
	Uploaded []*uploadedTexture  `json:"uploaded"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

func (s *SkinBox) uploadHandler(resp http.ResponseWriter, req *http.Request) {
	wantsJson := acceptsJson(req)
	req.Body = http.MaxBytesReader(resp, req.Body, s.maxUploadSize())
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadFailed(resp, wantsJson, http.StatusRequestEntityTooLarge, map[string][]string{
				"body": {fmt.Sprintf("The upload must not exceed %d bytes", tooLarge.Limit)},
			})
			return
		}

		s.uploadFailed(resp, wantsJson, http.StatusBadRequest, map[string][]string{
			"body": {"The body of the request must be a valid multipart form"},
		})
		return
	}
	defer req.MultipartForm.RemoveAll()

	if validationErrors := validateUploadRequest(req); validationErrors != nil {
		s.uploadFailed(resp, wantsJson, http.StatusBadRequest, validationErrors)
		return
	}

	username := req.Form.Get("username")
	result := &uploadResult{Uploaded: []*uploadedTexture{}}
	result.Username, _ = identity.Normalize(username)

	baseUrl := s.baseUrl(req)
	for _, kind := range textures.Kinds {
		file, _, err := req.FormFile(string(kind))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}

		if err != nil {
			result.Errors = map[string][]string{
				string(kind): {fmt.Sprintf("Unable to read the %s file", kind)},
			}
			s.uploadPartiallyFailed(resp, wantsJson, http.StatusBadRequest, result)
			return
		}

		stored, err := s.Store(req.Context(), username, kind, file)
		_ = file.Close()
		if err != nil {
			var identityErr *identity.InvalidIdentityError
			if errors.As(err, &identityErr) {
				s.uploadFailed(resp, wantsJson, http.StatusBadRequest, map[string][]string{
					"username": {identityErr.Reason},
				})
				return
			}

			// Textures stored before the failure stay in place, so they're still reported
			result.Errors = map[string][]string{
				string(kind): {"Upload failed: " + err.Error()},
			}
			s.uploadPartiallyFailed(resp, wantsJson, http.StatusInternalServerError, result)
			return
		}

		result.Username = stored.Identity
		result.Uploaded = append(result.Uploaded, &uploadedTexture{
			Kind:  stored.Kind,
			Title: kindTitle(stored.Kind),
			Url:   textureUrl(baseUrl, stored.Kind, stored.Identity),
		})
	}

	if wantsJson {
		apiResponse(resp, http.StatusOK, result)
		return
	}

	s.renderPage(resp, http.StatusOK, "upload.html", result)
}

func (s *SkinBox) uploadFailed(resp http.ResponseWriter, wantsJson bool, statusCode int, errorsPerField map[string][]string) {
	if wantsJson {
		if statusCode == http.StatusBadRequest {
			apiBadRequest(resp, errorsPerField)
		} else {
			apiResponse(resp, statusCode, map[string]any{"errors": errorsPerField})
		}

		return
	}

	s.renderPage(resp, statusCode, "upload.html", &uploadResult{Errors: errorsPerField})
}

func (s *SkinBox) uploadPartiallyFailed(resp http.ResponseWriter, wantsJson bool, statusCode int, result *uploadResult) {
	if len(result.Uploaded) == 0 {
		s.uploadFailed(resp, wantsJson, statusCode, result.Errors)
		return
	}

	if wantsJson {
		apiResponse(resp, statusCode, result)
		return
	}

	s.renderPage(resp, statusCode, "upload.html", result)
}

func validateUploadRequest(req *http.Request) map[string][]string {
	validator := govalidator.New(govalidator.Options{
		Request: req,
		Rules: govalidator.MapData{
			"username": {"required", "identity"},
		},
		Messages: govalidator.MapData{
			"username": {"required:Username required"},
		},
		RequiredDefault: false,
		FormSize:        maxMultipartMemory,
	})

	validationResults := validator.Validate()
	if len(validationResults) != 0 {
		return validationResults
	}

	return nil
}

type galleryItem struct {
	Identity string `json:"username"`
	HasSkin  bool   `json:"hasSkin"`
	HasCape  bool   `json:"hasCape"`
	SkinUrl  string `json:"skinUrl,omitempty"`
	CapeUrl  string `json:"capeUrl,omitempty"`
}

func (s *SkinBox) galleryHandler(resp http.ResponseWriter, req *http.Request) {
	wantsJson := mux.Vars(req)["format"] == "json"
	entries, err := s.ListEntries(req.Context())
	if err != nil {
		if wantsJson {
			apiServerError(resp, s.Logger, err)
			return
		}

		// The failure itself is reported through the gallery events
		s.renderPage(resp, http.StatusInternalServerError, "gallery.html", map[string]any{
			"Failed":  true,
			"Entries": []*galleryItem{},
		})
		return
	}

	baseUrl := s.baseUrl(req)
	items := make([]*galleryItem, len(entries))
	for i, entry := range entries {
		item := &galleryItem{
			Identity: entry.Identity,
			HasSkin:  entry.HasSkin,
			HasCape:  entry.HasCape,
		}
		if entry.HasSkin {
			item.SkinUrl = textureUrl(baseUrl, textures.KindSkin, entry.Identity)
		}

		if entry.HasCape {
			item.CapeUrl = textureUrl(baseUrl, textures.KindCape, entry.Identity)
		}

		items[i] = item
	}

	if wantsJson {
		apiResponse(resp, http.StatusOK, items)
		return
	}

	s.renderPage(resp, http.StatusOK, "gallery.html", map[string]any{
		"Failed":  false,
		"Entries": items,
	})
}

func (s *SkinBox) textureHandler(resp http.ResponseWriter, req *http.Request) {
	setCorsHeaders(resp)

	kind, err := textures.ParsePluralKind(mux.Vars(req)["kind"])
	if err != nil {
		NotFoundHandler(resp, req)
		return
	}

	// CustomSkinLoader substitutes the player's name as is, so the name passes through the same
	// normalization as on upload
	id, err := identity.Normalize(mux.Vars(req)["identity"])
	if err != nil {
		NotFoundHandler(resp, req)
		return
	}

	asset, err := s.Find(req.Context(), kind, id)
	if err != nil {
		apiServerError(resp, s.Logger, fmt.Errorf("unable to read %s of %s: %w", kind, id, err))
		return
	}

	if asset == nil {
		NotFoundHandler(resp, req)
		return
	}
	defer asset.File.Close()

	resp.Header().Set("Content-Type", "image/png")
	if seeker, ok := asset.File.(io.ReadSeeker); ok {
		http.ServeContent(resp, req, id+textures.FileExtension, asset.ModTime, seeker)
		return
	}

	if !asset.ModTime.IsZero() {
		resp.Header().Set("Last-Modified", asset.ModTime.UTC().Format(http.TimeFormat))
	}

	resp.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		_, _ = io.Copy(resp, asset.File)
	}
}

func (s *SkinBox) texturePreflightHandler(resp http.ResponseWriter, _ *http.Request) {
	setCorsHeaders(resp)
	resp.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	resp.WriteHeader(http.StatusNoContent)
}

type customSkinLoaderConfig struct {
	Enable   bool                    `json:"enable"`
	LoadList []*customSkinLoaderItem `json:"loadlist"`
}

type customSkinLoaderItem struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	CheckPNG bool   `json:"checkPNG"`
	Skin     string `json:"skin"`
	Model    string `json:"model"`
	Cape     string `json:"cape"`
	Elytra   string `json:"elytra"`
}

func (s *SkinBox) customSkinLoaderHandler(resp http.ResponseWriter, req *http.Request) {
	baseUrl := s.baseUrl(req)
	name := s.LoaderName
	if name == "" {
		name = "SkinBox"
	}

	config := &customSkinLoaderConfig{
		Enable: true,
		LoadList: []*customSkinLoaderItem{
			{
				Name:     name,
				Type:     "Legacy",
				CheckPNG: false,
				Skin:     textureUrlPattern(baseUrl, textures.KindSkin, "{USERNAME}"),
				Model:    "auto",
				Cape:     textureUrlPattern(baseUrl, textures.KindCape, "{USERNAME}"),
				Elytra:   "",
			},
		},
	}

	result, _ := json.MarshalIndent(config, "", "  ")
	resp.Header().Set("Content-Type", "application/json")
	resp.Header().Set("Content-Disposition", `attachment; filename="CustomSkinLoader.json"`)
	_, _ = resp.Write(result)
}

func (s *SkinBox) healthCheckHandler(resp http.ResponseWriter, _ *http.Request) {
	apiResponse(resp, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *SkinBox) renderPage(resp http.ResponseWriter, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		apiServerError(resp, s.Logger, fmt.Errorf("unable to render %s: %w", name, err))
		return
	}

	resp.Header().Set("Content-Type", "text/html; charset=utf-8")
	resp.WriteHeader(statusCode)
	_, _ = buf.WriteTo(resp)
}

func (s *SkinBox) maxUploadSize() int64 {
	if s.MaxUploadSize > 0 {
		return s.MaxUploadSize
	}

	return DefaultMaxUploadSize
}

func (s *SkinBox) baseUrl(req *http.Request) string {
	if s.PublicUrl != "" {
		return strings.TrimSuffix(s.PublicUrl, "/")
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}

	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}

	return scheme + "://" + req.Host
}

func textureUrl(baseUrl string, kind textures.Kind, id string) string {
	return textureUrlPattern(baseUrl, kind, url.PathEscape(id))
}

// textureUrlPattern puts the name into the URL as is, so placeholders like {USERNAME} stay intact
func textureUrlPattern(baseUrl string, kind textures.Kind, name string) string {
	return baseUrl + "/uploads/" + kind.Plural() + "/" + name + textures.FileExtension
}

func kindTitle(kind textures.Kind) string {
	return strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

func acceptsJson(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

func setCorsHeaders(resp http.ResponseWriter) {
	resp.Header().Set("Access-Control-Allow-Origin", "*")
}
