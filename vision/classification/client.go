package classification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gridscan/gridscan/logging"
)

// DefaultInputSize is the side of the square images sent to the classifier.
const DefaultInputSize = 28

// ClassifyRequest is the body posted to the classifier service.
type ClassifyRequest struct {
	Size int `json:"size"`
	// Images are base64 encoded grayscale PNGs, Size x Size each.
	Images []string `json:"images"`
}

// Prediction is one candidate label in a ClassifyResponse.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassifyResponse holds the candidates for each posted image, in order.
type ClassifyResponse struct {
	Predictions [][]Prediction `json:"predictions"`
}

// Client is a DigitClassifier backed by an HTTP inference service.
type Client struct {
	url       *url.URL
	client    *http.Client
	inputSize int
	logger    logging.Logger
}

// NewClient returns a Client posting to <rawURL>/classify. A nil client uses a client with the
// given timeout.
func NewClient(rawURL string, client *http.Client, timeout time.Duration, inputSize int, logger logging.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid classifier url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("classifier url %q must be absolute", rawURL)
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	return &Client{url: u, client: client, inputSize: inputSize, logger: logger}, nil
}

// Classify implements DigitClassifier.
func (c *Client) Classify(ctx context.Context, imgs []image.Image) ([]Classifications, error) {
	req := ClassifyRequest{Size: c.inputSize, Images: make([]string, 0, len(imgs))}
	for i, img := range imgs {
		encoded, err := c.encode(img)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot encode image %d", i)
		}
		req.Images = append(req.Images, encoded)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.JoinPath("classify").String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			c.logger.Debugw("cannot close response body", "error", err)
		}
	}()
	if response.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return nil, errors.Errorf("classifier responded %d: %s", response.StatusCode, msg)
	}

	var resp ClassifyResponse
	if err := json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decode response body")
	}
	c.logger.CDebugw(ctx, "classified", "images", len(imgs), "took", time.Since(start))
	if len(resp.Predictions) != len(imgs) {
		return nil, errors.Errorf("classifier returned %d results for %d images", len(resp.Predictions), len(imgs))
	}

	return lo.Map(resp.Predictions, func(preds []Prediction, _ int) Classifications {
		return lo.Map(preds, func(p Prediction, _ int) Classification {
			return NewClassification(p.Score, p.Label)
		})
	}), nil
}

func (c *Client) encode(img image.Image) (string, error) {
	small := resize.Resize(uint(c.inputSize), uint(c.inputSize), img, resize.Bilinear)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(small), imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
