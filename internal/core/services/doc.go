// Package services implements the driving port interfaces.
// Services contain the client's orchestration logic: the session state
// machine, the realtime status subscriber, the authorization window
// controller and the authorization flow that ties them together.
//
// Services are pure Go; every transport is reached through a driven port.
package services
