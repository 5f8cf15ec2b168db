// Package export pulls an OpenAPI document out of AWS API Gateway so it can
// be synced like a local spec file.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrAPINotFound is returned when the REST API or stage does not exist.
var ErrAPINotFound = errors.New("export: API not found")

// DefaultDir is where exported documents are written.
const DefaultDir = "specs"

// API is the subset of the API Gateway client used by Exporter.
type API interface {
	GetRestApi(ctx context.Context, in *apigateway.GetRestApiInput, opts ...func(*apigateway.Options)) (*apigateway.GetRestApiOutput, error)
	GetExport(ctx context.Context, in *apigateway.GetExportInput, opts ...func(*apigateway.Options)) (*apigateway.GetExportOutput, error)
}

// Exporter writes API Gateway exports to local files.
type Exporter struct {
	api    API
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// New returns an exporter that writes into DefaultDir on fs.
func New(api API, fs afero.Fs, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{api: api, fs: fs, dir: DefaultDir, logger: logger}
}

// NewAWS returns an exporter backed by the default AWS credential chain.
// An empty region defers to the shared config and environment.
func NewAWS(ctx context.Context, region string, fs afero.Fs, logger *zap.Logger) (*Exporter, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return New(apigateway.NewFromConfig(cfg), fs, logger), nil
}

// Path returns the file an export of apiID at stage is written to.
func (e *Exporter) Path(apiID, stage string) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s-%s.yaml", apiID, stage))
}

// Export fetches the OpenAPI 3 YAML export of apiID at stage, writes it
// and returns its path.
func (e *Exporter) Export(ctx context.Context, apiID, stage string) (string, error) {
	api, err := e.api.GetRestApi(ctx, &apigateway.GetRestApiInput{RestApiId: aws.String(apiID)})
	if err != nil {
		return "", wrap(apiID, err)
	}
	e.logger.Info("exporting from API Gateway",
		zap.String("api_id", apiID),
		zap.String("stage", stage),
		zap.String("api_name", aws.ToString(api.Name)),
	)

	out, err := e.api.GetExport(ctx, &apigateway.GetExportInput{
		RestApiId:  aws.String(apiID),
		StageName:  aws.String(stage),
		ExportType: aws.String("oas30"),
		Accepts:    aws.String("application/yaml"),
	})
	if err != nil {
		return "", wrap(apiID, err)
	}

	path := e.Path(apiID, stage)
	if err := e.fs.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", e.dir, err)
	}
	if err := afero.WriteFile(e.fs, path, out.Body, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	e.logger.Info("exported spec", zap.String("path", path))
	return path, nil
}

func wrap(apiID string, err error) error {
	var nf *types.NotFoundException
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrAPINotFound, apiID)
	}
	return fmt.Errorf("export of %s failed: %w", apiID, err)
}
