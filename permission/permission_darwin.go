//go:build darwin

package permission

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework Foundation -framework AVFoundation -framework ApplicationServices
#import <CoreGraphics/CoreGraphics.h>
#import <Foundation/Foundation.h>
#import <AVFoundation/AVFoundation.h>
#import <ApplicationServices/ApplicationServices.h>

bool hasAccessibilityPermission() {
    return AXIsProcessTrusted();
}

bool hasScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        return CGPreflightScreenCaptureAccess();
    }
    // No preflight API on 10.15.
    return true;
}

void requestScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        CGRequestScreenCaptureAccess();
    }
}

int microphoneAuthStatus() {
    return (int)[AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

// AVAuthorizationStatus values.
const (
	micNotDetermined = 0
	micAuthorized    = 3
)

// HasMicrophone reports whether microphone access has been granted.
func HasMicrophone() bool {
	return int(C.microphoneAuthStatus()) == micAuthorized
}

// HasScreenRecording reports whether screen recording access has been granted.
func HasScreenRecording() bool {
	return bool(C.hasScreenRecordingPermission())
}

// HasAccessibility reports whether the process is trusted for
// accessibility. Global key monitoring and synthetic input need this.
func HasAccessibility() bool {
	return bool(C.hasAccessibilityPermission())
}

// RequestMicrophone triggers the system microphone prompt if the user
// has not decided yet. The decision arrives asynchronously.
func RequestMicrophone() {
	if int(C.microphoneAuthStatus()) == micNotDetermined {
		C.requestMicrophonePermission()
	}
}

// RequestScreenRecording triggers the system screen recording prompt.
func RequestScreenRecording() {
	C.requestScreenRecordingPermission()
}

// Missing returns the names of permissions that are not granted.
// Screen recording is only checked when screenshots are in play.
func Missing(needScreen bool) []string {
	var missing []string
	if !HasMicrophone() {
		missing = append(missing, "microphone")
	}
	if !HasAccessibility() {
		missing = append(missing, "accessibility")
	}
	if needScreen && !HasScreenRecording() {
		missing = append(missing, "screen recording")
	}
	return missing
}
