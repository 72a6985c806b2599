package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/LukeHagar/plexgo"
	"github.com/LukeHagar/plexgo/models/operations"

	"github.com/JaewonYunDS/Filmind/internal/logging"
)

// PlexClient wraps the plexgo SDK for the watched-history import flow.
type PlexClient struct {
	clientID string
}

// PlexServer is an accessible Plex Media Server and its connections.
type PlexServer struct {
	Name        string
	MachineID   string
	AccessToken string
	Connections []PlexConnection
	Owned       bool
}

type PlexConnection struct {
	Protocol string
	Address  string
	Port     int
	URI      string
	Local    bool
	Relay    bool
}

// PlexLibrary is a library section on a server.
type PlexLibrary struct {
	Key   int
	Title string
	Type  string
}

// PlexMovie is a movie item from a library, with its watched state.
type PlexMovie struct {
	Title   string
	Year    *int
	GUID    string
	Watched bool
}

func NewPlexClient() *PlexClient {
	return &PlexClient{clientID: "filmind-app"}
}

// GetServers lists the Plex Media Servers the token can reach.
func (p *PlexClient) GetServers(ctx context.Context, token string) ([]PlexServer, error) {
	client := plexgo.New(plexgo.WithSecurity(token))

	res, err := client.Plex.GetServerResources(ctx, p.clientID,
		operations.IncludeHTTPSEnable.ToPointer(),
		operations.IncludeRelayEnable.ToPointer(),
		nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get server resources: %w", err)
	}

	var servers []PlexServer
	for _, device := range res.PlexDevices {
		if device.Product != "Plex Media Server" {
			continue
		}

		server := PlexServer{
			Name:        device.Name,
			MachineID:   device.ClientIdentifier,
			AccessToken: device.AccessToken,
			Owned:       device.Owned,
		}
		for _, conn := range device.Connections {
			server.Connections = append(server.Connections, PlexConnection{
				Protocol: string(conn.Protocol),
				Address:  conn.Address,
				Port:     conn.Port,
				URI:      conn.URI,
				Local:    conn.Local,
				Relay:    conn.Relay,
			})
		}
		servers = append(servers, server)
	}

	logging.L().Debug().Int("count", len(servers)).Msg("retrieved accessible plex servers")
	return servers, nil
}

// GetLibraries lists the library sections the token can see on a server.
func (p *PlexClient) GetLibraries(ctx context.Context, token, serverURL string) ([]PlexLibrary, error) {
	client := plexgo.New(
		plexgo.WithSecurity(token),
		plexgo.WithServerURL(serverURL),
	)

	res, err := client.Library.GetAllLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get libraries: %w", err)
	}

	var libraries []PlexLibrary
	if res.Object != nil && res.Object.MediaContainer != nil {
		for _, dir := range res.Object.MediaContainer.Directory {
			key, err := strconv.Atoi(dir.Key)
			if err != nil {
				continue
			}
			libraries = append(libraries, PlexLibrary{
				Key:   key,
				Title: dir.Title,
				Type:  string(dir.Type),
			})
		}
	}
	return libraries, nil
}

// GetMoviesInLibrary lists all movie items in a library section.
func (p *PlexClient) GetMoviesInLibrary(ctx context.Context, token, serverURL string, libraryKey int) ([]PlexMovie, error) {
	client := plexgo.New(
		plexgo.WithSecurity(token),
		plexgo.WithServerURL(serverURL),
	)

	res, err := client.Library.GetLibraryItems(ctx, operations.GetLibraryItemsRequest{
		SectionKey: libraryKey,
		Tag:        operations.Tag("all"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get library items: %w", err)
	}

	var movies []PlexMovie
	if res.Object != nil && res.Object.MediaContainer != nil {
		for _, metadata := range res.Object.MediaContainer.Metadata {
			if metadata.Type != operations.GetLibraryItemsTypeMovie {
				continue
			}
			movie := PlexMovie{
				Title:   metadata.Title,
				GUID:    metadata.GUID,
				Watched: metadata.ViewCount != nil && *metadata.ViewCount > 0,
			}
			if metadata.Year != nil {
				movie.Year = metadata.Year
			}
			movies = append(movies, movie)
		}
	}

	logging.L().Debug().Int("count", len(movies)).Int("library", libraryKey).Msg("retrieved plex library movies")
	return movies, nil
}

// BestConnection picks the preferred connection for a server: external
// first, then local, then anything.
func (p *PlexClient) BestConnection(server PlexServer) *PlexConnection {
	for i, conn := range server.Connections {
		if !conn.Local && !conn.Relay {
			return &server.Connections[i]
		}
	}
	for i, conn := range server.Connections {
		if conn.Local {
			return &server.Connections[i]
		}
	}
	if len(server.Connections) > 0 {
		return &server.Connections[0]
	}
	return nil
}
