package scene

type ImageFormat string

const (
	ImageFormatPng  ImageFormat = "png"
	ImageFormatJpg  ImageFormat = "jpg"
	ImageFormatWebp ImageFormat = "webp"
	ImageFormatBmp  ImageFormat = "bmp"
)

// ImageAsset is one embedded or external image payload.
type ImageAsset struct {
	Name   string
	URI    string
	Format ImageFormat
	Data   []byte
}
