package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xfrr/goffmpeg/transcoder"
)

// Параметры нормализации: распознаванию достаточно 16 кГц моно
const (
	wavSampleRate    = 16000
	wavChannels      = 1
	segmentSeconds   = 600
	chunkNamePattern = "chunk_%03d.wav"
)

// FFmpegPreparer готовит аудио к распознаванию: нормализует в wav
// и режет на куски фиксированной длительности. Требует ffmpeg в PATH.
type FFmpegPreparer struct{}

func NewFFmpegPreparer() (*FFmpegPreparer, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	return &FFmpegPreparer{}, nil
}

// Prepare возвращает пути кусков в порядке следования и функцию очистки
// временной директории
func (p *FFmpegPreparer) Prepare(ctx context.Context, audio io.Reader) ([]string, func(), error) {
	workdir, err := os.MkdirTemp(os.TempDir(), "audio-process-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(workdir) }

	inputPath := filepath.Join(workdir, "input")
	if err := saveToFile(ctx, audio, inputPath); err != nil {
		cleanup()
		return nil, nil, err
	}

	wavPath := filepath.Join(workdir, "normalized.wav")
	if err := convertToWav(ctx, inputPath, wavPath); err != nil {
		cleanup()
		return nil, nil, err
	}

	chunks, err := segmentWav(ctx, wavPath, workdir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return chunks, cleanup, nil
}

func saveToFile(ctx context.Context, r io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create input file: %w", err)
	}
	defer f.Close()

	// Копирование в горутине, чтобы реагировать на отмену контекста
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(f, r)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to copy audio data: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func convertToWav(ctx context.Context, inputPath, outputPath string) error {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(inputPath, outputPath); err != nil {
		return fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetAudioCodec("pcm_s16le")
	trans.MediaFile().SetAudioRate(wavSampleRate)
	trans.MediaFile().SetAudioChannels(wavChannels)
	trans.MediaFile().SetSkipVideo(true)

	done := trans.Run(true)
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("audio conversion failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func segmentWav(ctx context.Context, wavPath, workdir string) ([]string, error) {
	pattern := filepath.Join(workdir, chunkNamePattern)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", wavPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-c", "copy",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("audio segmentation failed: %w: %s", err, out)
	}

	chunks, err := filepath.Glob(filepath.Join(workdir, "chunk_*.wav"))
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("segmentation produced no chunks")
	}
	sort.Strings(chunks)

	return chunks, nil
}
