// SPDX-License-Identifier: AGPL-3.0-or-later
// M17Host - Bridge an MMDVM modem to M17 IP networks in a single binary
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/M17Host>

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/USA-RedDragon/M17Host/cmd"
	"github.com/USA-RedDragon/M17Host/internal/config"
	"github.com/USA-RedDragon/M17Host/internal/sdk"
	"github.com/USA-RedDragon/configulator"
)

func main() {
	rootCmd := cmd.NewCommand(sdk.Version, sdk.GitCommit)

	c := configulator.New[config.Config]().
		WithPFlags(rootCmd.Flags(), nil)

	rootCmd.SetContext(c.WithContext(context.Background()))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Exiting with error", "error", err)
		os.Exit(1)
	}
}
