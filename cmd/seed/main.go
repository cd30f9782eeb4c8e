// Command seed populates a running API with sample garden data: devices,
// models, detections with generated frames, classifications, environmental
// readings, and optionally a short video per device. Useful for exercising
// dashboards and the CSV export path against a local stack.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sensing-garden/backend/pkg/sgclient"
)

type plant struct {
	Family  string
	Genus   string
	Species string
	Common  string
}

var plants = []plant{
	{"Solanaceae", "Solanum", "Solanum lycopersicum", "Tomato"},
	{"Solanaceae", "Capsicum", "Capsicum annuum", "Bell Pepper"},
	{"Asteraceae", "Lactuca", "Lactuca sativa", "Lettuce"},
	{"Amaranthaceae", "Spinacia", "Spinacia oleracea", "Spinach"},
	{"Cucurbitaceae", "Cucumis", "Cucumis sativus", "Cucumber"},
}

func main() {
	baseURL := flag.String("base-url", envOrDefault("API_BASE_URL", "http://localhost:8080"), "API base URL")
	apiKey := flag.String("api-key", os.Getenv("SENSING_GARDEN_API_KEY"), "API key for write operations")
	devices := flag.Int("devices", 3, "number of devices to register")
	days := flag.Int("days", 7, "how many days back to spread readings over")
	perDay := flag.Int("per-day", 4, "detections and readings per device per day")
	withVideos := flag.Bool("videos", false, "also upload a sample video per device")
	flag.Parse()

	fmt.Println("Sensing Garden sample data seeder")
	fmt.Printf("Target: %s\n", *baseURL)

	sgc, err := sgclient.New(sgclient.Config{
		BaseURL:    *baseURL,
		APIKey:     *apiKey,
		MaxRetries: 3,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var ok, failed int
	count := func(err error, what string) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %s: %v\n", what, err)
			failed++
			return
		}
		ok++
	}

	deviceIDs := make([]string, *devices)
	for i := range deviceIDs {
		deviceIDs[i] = fmt.Sprintf("device-%03d", i+1)
	}

	fmt.Println("\nRegistering devices...")
	for _, id := range deviceIDs {
		_, err := sgc.Devices.Add(ctx, sgclient.Device{
			DeviceID: id,
			Fields: map[string]any{
				"name":     fmt.Sprintf("Garden Pod %s", id),
				"location": "test-garden",
			},
		})
		count(err, "device "+id)
		fmt.Printf("  %s\n", id)
	}

	fmt.Println("\nRegistering models...")
	detectionModel := "model-001"
	classificationModel := "model-002"
	_, err = sgc.Models.Add(ctx, sgclient.Model{
		ModelID:     detectionModel,
		Name:        "Plant Detection v1",
		Version:     "1.0.0",
		Type:        "detection",
		Description: "Model for detecting plants in images",
	})
	count(err, "model "+detectionModel)
	_, err = sgc.Models.Add(ctx, sgclient.Model{
		ModelID:     classificationModel,
		Name:        "Plant Classification v1",
		Version:     "1.0.0",
		Type:        "classification",
		Description: "Model for classifying plant species",
	})
	count(err, "model "+classificationModel)

	fmt.Println("\nUploading detections...")
	for _, id := range deviceIDs {
		for d := 0; d < *days; d++ {
			track := uuid.NewString()
			for n := 0; n < *perDay; n++ {
				ts := sampleTime(d, n, *perDay)
				frame, err := makeFrame(fmt.Sprintf("%s %s", id, ts.Format("Jan 2 15:04")))
				if err != nil {
					count(err, "frame for "+id)
					continue
				}
				_, err = sgc.Detections.Add(ctx, sgclient.Detection{
					DeviceID:    id,
					ModelID:     detectionModel,
					Image:       frame,
					Timestamp:   ts.Format(time.RFC3339),
					BoundingBox: randomBox(),
					TrackID:     track,
				})
				count(err, "detection for "+id)
			}
		}
		fmt.Printf("  %s: %d frames\n", id, (*days)*(*perDay))
	}

	fmt.Println("\nUploading classifications...")
	for _, id := range deviceIDs {
		for d := 0; d < *days; d++ {
			p := plants[rand.Intn(len(plants))]
			ts := sampleTime(d, 0, 1)
			frame, err := makeFrame(p.Common)
			if err != nil {
				count(err, "frame for "+id)
				continue
			}
			_, err = sgc.Classifications.Add(ctx, sgclient.Classification{
				DeviceID:          id,
				ModelID:           classificationModel,
				Image:             frame,
				Timestamp:         ts.Format(time.RFC3339),
				Family:            p.Family,
				Genus:             p.Genus,
				Species:           p.Species,
				FamilyConfidence:  confidence(),
				GenusConfidence:   confidence(),
				SpeciesConfidence: confidence(),
				Metadata:          map[string]any{"common_name": p.Common},
			})
			count(err, "classification for "+id)
		}
		fmt.Printf("  %s: %d classifications\n", id, *days)
	}

	fmt.Println("\nUploading environmental readings...")
	for _, id := range deviceIDs {
		for d := 0; d < *days; d++ {
			for n := 0; n < *perDay; n++ {
				ts := sampleTime(d, n, *perDay)
				_, err := sgc.Environment.Add(ctx, sgclient.EnvironmentalReading{
					DeviceID:  id,
					Timestamp: ts.Format(time.RFC3339),
					Data:      sensorSample(),
				})
				count(err, "reading for "+id)
			}
		}
		fmt.Printf("  %s: %d readings\n", id, (*days)*(*perDay))
	}

	if *withVideos {
		fmt.Println("\nUploading videos...")
		for _, id := range deviceIDs {
			_, err := sgc.Videos.Upload(ctx, sgclient.Video{
				DeviceID:    id,
				Video:       fakeClip(),
				ContentType: "video/mp4",
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
				Description: "Sample pollinator clip",
			})
			count(err, "video for "+id)
			fmt.Printf("  %s\n", id)
		}
	}

	fmt.Printf("\nDone: %d stored, %d errors\n", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// sampleTime spreads readings across the day: slot n of perDay on day d
// before today, during daylight hours.
func sampleTime(d, n, perDay int) time.Time {
	base := time.Now().UTC().AddDate(0, 0, -d)
	hour := 8 + (10*n)/perDay
	return time.Date(base.Year(), base.Month(), base.Day(), hour, rand.Intn(60), rand.Intn(60), 0, time.UTC)
}

func randomBox() []float64 {
	x := rand.Float64() * 0.6
	y := rand.Float64() * 0.6
	return []float64{
		round2(x), round2(y),
		round2(x + 0.1 + rand.Float64()*0.3),
		round2(y + 0.1 + rand.Float64()*0.3),
	}
}

func confidence() float64 {
	return round2(0.75 + rand.Float64()*0.24)
}

func round2(f float64) float64 {
	return float64(int(f*100)) / 100
}

// sensorSample fakes one SEN55-style reading.
func sensorSample() map[string]any {
	return map[string]any{
		"pm1p0":               round2(2 + rand.Float64()*8),
		"pm2p5":               round2(4 + rand.Float64()*12),
		"pm4p0":               round2(5 + rand.Float64()*15),
		"pm10p0":              round2(6 + rand.Float64()*20),
		"ambient_temperature": round2(18 + rand.Float64()*14),
		"ambient_humidity":    round2(40 + rand.Float64()*50),
		"voc_index":           float64(80 + rand.Intn(120)),
		"nox_index":           float64(1 + rand.Intn(40)),
	}
}

// makeFrame renders a small labeled JPEG, standing in for a camera frame.
func makeFrame(label string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	bg := color.RGBA{R: 73, G: 109, B: 137, A: 255}
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, bg)
		}
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 0, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 20),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fakeClip returns a minimal MP4-flavored blob. The bytes only need to be
// plausible enough to flow through upload and presign.
func fakeClip() []byte {
	clip := make([]byte, 0, 4096)
	clip = append(clip, 0x00, 0x00, 0x00, 0x18)
	clip = append(clip, []byte("ftypmp42")...)
	clip = append(clip, make([]byte, 12)...)
	body := make([]byte, 4064)
	for i := range body {
		body[i] = byte(rand.Intn(256))
	}
	return append(clip, body...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
