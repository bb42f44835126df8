// Package normalize turns gallery bytes into something the QR locator can
// decode.
//
// HEIC/HEIF images are first probed with the registered native decoders; if
// none can read them they are converted to JPEG in software, and if that
// fails too the original bytes are passed through so the decode attempt
// still runs. DecodeBitmap decodes the result and applies the JPEG EXIF
// orientation so mirrored phone photos are upright before detection.
package normalize
