//go:build darwin

package permission

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation

#include <ApplicationServices/ApplicationServices.h>
#import <Foundation/Foundation.h>

static int checkAccessibility(int prompt) {
    @autoreleasepool {
        NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: prompt ? @YES : @NO};
        return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
    }
}
*/
import "C"

// Trusted reports whether the process is trusted for Accessibility,
// without prompting.
func Trusted() bool {
	return C.checkAccessibility(0) == 1
}

// Prompt asks the OS to show its Accessibility prompt if the process is
// not trusted yet, and returns the current trust state. The user's answer
// arrives later; callers observe it through Trusted or an activation retry.
func Prompt() bool {
	return C.checkAccessibility(1) == 1
}
