// Package qr locates and decodes the QR code printed on a fiscal receipt.
//
// Locator runs a fixed, exhaustive schedule: for each clockwise rotation
// (0, 90, 180, 270 degrees) it tries up to five enhancement passes, cheapest
// first, and stops at the first successful detection:
//
//  1. the raw rotated bitmap;
//  2. contrast x2, grayscale (faded prints);
//  3. contrast x3, brightness x1.3, grayscale (very faded prints);
//  4. adaptive local-mean binarization (uneven light, creases, shadows);
//  5. contrast/brightness applied twice, then binarization (blurry or damaged codes).
//
// The upright bitmap gets passes 1-3 first. Every rotated bitmap then gets all
// five passes, and the upright binarized passes 4 and 5 run last, so a code
// that only binarization finds at 90 degrees costs seven detector calls. The
// worst case is 20 detector calls.
package qr
